// cache.go - 编译缓存
//
// pyra build 用它跳过内容未变的源文件：
// 1. 源文件内容的 blake2b-256 摘要作为缓存键
// 2. 缓存文件就是编译产物文件格式，读取时重新校验和验证
// 3. 索引 index.json 记录摘要、大小和访问时间
// 4. 超过条目数或总大小上限时按 LRU 清理

package compiler

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
	"golang.org/x/crypto/blake2b"

	"github.com/tangzhangming/pyra/internal/bytecode"
	"github.com/tangzhangming/pyra/internal/logging"
)

const (
	// CacheVersion 缓存版本，与字节码格式版本绑定
	CacheVersion = "pyrc-1"

	// DefaultCacheDir 默认缓存目录
	DefaultCacheDir = ".pyra-cache"

	// MaxCacheEntries 最大缓存条目数
	MaxCacheEntries = 1000

	// MaxCacheSize 最大缓存大小（字节）
	MaxCacheSize = 64 * 1024 * 1024
)

// CacheManager 缓存管理器
type CacheManager struct {
	mu       sync.RWMutex
	cacheDir string
	index    *CacheIndex
	enabled  bool
}

// CacheIndex 缓存索引
type CacheIndex struct {
	Version   string                 `json:"version"`
	Entries   map[string]*CacheEntry `json:"entries"`
	TotalSize int64                  `json:"total_size"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// CacheEntry 缓存条目
type CacheEntry struct {
	SourcePath  string    `json:"source_path"`
	SourceHash  string    `json:"source_hash"`
	CacheFile   string    `json:"cache_file"`
	Size        int64     `json:"size"`
	CompiledAt  time.Time `json:"compiled_at"`
	AccessedAt  time.Time `json:"accessed_at"`
	AccessCount int       `json:"access_count"`
}

// CacheStats 缓存统计信息
type CacheStats struct {
	TotalEntries int
	TotalSize    int64
	CacheDir     string
	UpdatedAt    time.Time
}

// NewCacheManager 在 dir 下创建或打开缓存
func NewCacheManager(dir string) (*CacheManager, error) {
	cm := &CacheManager{
		cacheDir: dir,
		enabled:  true,
	}

	// 确保缓存目录存在
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// 索引损坏时从空索引开始
	if err := cm.loadIndex(); err != nil {
		cm.index = &CacheIndex{
			Version: CacheVersion,
			Entries: make(map[string]*CacheEntry),
		}
	}

	// 版本不匹配，清空缓存
	if cm.index.Version != CacheVersion || cm.index.Entries == nil {
		if err := cm.Clear(); err != nil {
			return nil, err
		}
	}
	return cm, nil
}

// Disable 禁用缓存
func (cm *CacheManager) Disable() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.enabled = false
}

// IsEnabled 检查是否启用
func (cm *CacheManager) IsEnabled() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.enabled
}

// Get 源文件内容未变时返回缓存的代码对象
func (cm *CacheManager) Get(sourcePath string) (*bytecode.Code, bool) {
	if !cm.IsEnabled() {
		return nil, false
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	hash, err := fileHash(sourcePath)
	if err != nil {
		return nil, false
	}
	entry, ok := cm.index.Entries[sourcePath]
	if !ok {
		return nil, false
	}
	if entry.SourceHash != hash {
		cm.removeEntryUnsafe(sourcePath)
		return nil, false
	}

	code, err := bytecode.ReadFile(entry.CacheFile)
	if err != nil {
		cm.removeEntryUnsafe(sourcePath)
		return nil, false
	}

	entry.AccessedAt = time.Now()
	entry.AccessCount++
	return code, true
}

// Put 保存编译结果
func (cm *CacheManager) Put(sourcePath string, code *bytecode.Code) error {
	if !cm.IsEnabled() {
		return nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	hash, err := fileHash(sourcePath)
	if err != nil {
		return err
	}
	data, err := bytecode.Serialize(code)
	if err != nil {
		return err
	}
	cacheFile := cm.cacheFileName(sourcePath, hash)
	if err := os.WriteFile(cacheFile, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	cm.removeEntryUnsafe(sourcePath)
	now := time.Now()
	cm.index.Entries[sourcePath] = &CacheEntry{
		SourcePath:  sourcePath,
		SourceHash:  hash,
		CacheFile:   cacheFile,
		Size:        int64(len(data)),
		CompiledAt:  now,
		AccessedAt:  now,
		AccessCount: 1,
	}
	cm.index.TotalSize += int64(len(data))
	cm.index.UpdatedAt = now

	cm.cleanupIfNeeded()
	return cm.saveIndex()
}

// Clear 清空所有缓存
func (cm *CacheManager) Clear() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	entries, err := os.ReadDir(cm.cacheDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == bytecode.CompiledFileExtension {
				os.Remove(filepath.Join(cm.cacheDir, entry.Name()))
			}
		}
	}

	cm.index = &CacheIndex{
		Version: CacheVersion,
		Entries: make(map[string]*CacheEntry),
	}
	return cm.saveIndex()
}

// Save 写回索引（Get 更新的访问信息只在内存中）
func (cm *CacheManager) Save() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.saveIndex()
}

// Stats 获取缓存统计
func (cm *CacheManager) Stats() CacheStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return CacheStats{
		TotalEntries: len(cm.index.Entries),
		TotalSize:    cm.index.TotalSize,
		CacheDir:     cm.cacheDir,
		UpdatedAt:    cm.index.UpdatedAt,
	}
}

// CompileFileCached 命中缓存时跳过解析和编译
func CompileFileCached(cm *CacheManager, path string, log logging.Sink) (code *bytecode.Code, hit bool, err error) {
	if cm != nil {
		if code, ok := cm.Get(path); ok {
			return code, true, nil
		}
	}
	code, err = CompileFile(path, log)
	if err != nil {
		return nil, false, err
	}
	if cm != nil {
		if err := cm.Put(path, code); err != nil && log != nil {
			log.Warn("cache: ", err)
		}
	}
	return code, false, nil
}

// ============================================================================
// 内部方法
// ============================================================================

func (cm *CacheManager) indexPath() string {
	return filepath.Join(cm.cacheDir, "index.json")
}

// loadIndex 加载缓存索引
func (cm *CacheManager) loadIndex() error {
	data, err := os.ReadFile(cm.indexPath())
	if err != nil {
		return err
	}
	index := &CacheIndex{}
	if err := json.Unmarshal(data, index); err != nil {
		return err
	}
	cm.index = index
	return nil
}

// saveIndex 保存缓存索引
func (cm *CacheManager) saveIndex() error {
	data, err := json.MarshalIndent(cm.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(cm.indexPath(), data, 0o644)
}

// fileHash 文件内容的 blake2b-256 摘要
func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}

// ContentHash 内容的 blake2b-256 摘要（十六进制）
func ContentHash(content []byte) string {
	h := blake2b.Sum256(content)
	return hex.EncodeToString(h[:])
}

// cacheFileName 源文件路径摘要和内容摘要组合成缓存文件名
func (cm *CacheManager) cacheFileName(sourcePath, hash string) string {
	pathHash := blake2b.Sum256([]byte(sourcePath))
	name := hex.EncodeToString(pathHash[:8]) + "_" + hash[:16] + bytecode.CompiledFileExtension
	return filepath.Join(cm.cacheDir, name)
}

// removeEntryUnsafe 删除缓存条目（不加锁）
func (cm *CacheManager) removeEntryUnsafe(sourcePath string) {
	entry, ok := cm.index.Entries[sourcePath]
	if !ok {
		return
	}
	os.Remove(entry.CacheFile)
	cm.index.TotalSize -= entry.Size
	delete(cm.index.Entries, sourcePath)
}

// cleanupIfNeeded 超过上限时清理
func (cm *CacheManager) cleanupIfNeeded() {
	if len(cm.index.Entries) > MaxCacheEntries {
		cm.evictLRU(len(cm.index.Entries) - MaxCacheEntries)
	}
	if cm.index.TotalSize > MaxCacheSize {
		cm.evictBySize(cm.index.TotalSize - MaxCacheSize)
	}
}

// lruOrder 按访问时间从旧到新排列条目
func (cm *CacheManager) lruOrder() []*CacheEntry {
	entries := make([]*CacheEntry, 0, len(cm.index.Entries))
	for _, entry := range cm.index.Entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AccessedAt.Before(entries[j].AccessedAt)
	})
	return entries
}

// evictLRU 删除最久未访问的 count 个条目
func (cm *CacheManager) evictLRU(count int) {
	entries := cm.lruOrder()
	for i := 0; i < count && i < len(entries); i++ {
		cm.removeEntryUnsafe(entries[i].SourcePath)
	}
}

// evictBySize 按 LRU 删除条目直到减少 target 字节
func (cm *CacheManager) evictBySize(target int64) {
	var reduced int64
	for _, entry := range cm.lruOrder() {
		if reduced >= target {
			break
		}
		reduced += entry.Size
		cm.removeEntryUnsafe(entry.SourcePath)
	}
}

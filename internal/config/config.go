// Package config 读取 pyra.toml 项目配置
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/tangzhangming/pyra/internal/i18n"
	"github.com/tangzhangming/pyra/internal/logging"
)

// FileName 配置文件名
const FileName = "pyra.toml"

// 输出格式
const (
	FormatNative = "native"
	FormatCBOR   = "cbor"
)

// Config 项目配置
type Config struct {
	Project Project        `toml:"project"`
	Build   Build          `toml:"build"`
	Fmt     Fmt            `toml:"fmt"`
	Log     logging.Config `toml:"log"`
	Lang    Lang           `toml:"lang"`

	// Path 配置文件路径，未从文件加载时为空
	Path string `toml:"-"`
}

// Project 项目信息
type Project struct {
	Name string `toml:"name"`
	Main string `toml:"main"` // 入口文件，相对于配置文件所在目录
}

// Build 构建选项
type Build struct {
	Output string `toml:"output"` // .pyc 输出目录
	Format string `toml:"format"` // native | cbor
	Cache  bool   `toml:"cache"`  // 内容未变的文件复用上次的编译结果

	FollowImports bool `toml:"follow_imports"` // 同时编译入口文件导入的本地模块
}

// Fmt pyra fmt 的风格
type Fmt struct {
	IndentStyle string `toml:"indent_style"` // spaces | tabs
	IndentSize  int    `toml:"indent_size"`
}

// Lang 界面语言
type Lang struct {
	Locale string `toml:"locale"` // en | zh
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Project: Project{Name: "app", Main: "main.py"},
		Build:   Build{Output: "build", Format: FormatNative, Cache: true},
		Fmt:     Fmt{IndentStyle: "spaces", IndentSize: 4},
		Log:     logging.DefaultConfig(),
		Lang:    Lang{Locale: "en"},
	}
}

// Load 从文件加载配置，缺省字段取默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse 解析 TOML 文本并校验
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查枚举字段
func (c *Config) Validate() error {
	switch c.Build.Format {
	case FormatNative, FormatCBOR:
	default:
		return fmt.Errorf("build.format must be %q or %q, got %q", FormatNative, FormatCBOR, c.Build.Format)
	}
	switch c.Fmt.IndentStyle {
	case "spaces", "tabs":
	default:
		return fmt.Errorf("fmt.indent_style must be spaces or tabs, got %q", c.Fmt.IndentStyle)
	}
	if c.Fmt.IndentSize < 1 || c.Fmt.IndentSize > 16 {
		return fmt.Errorf("fmt.indent_size must be between 1 and 16, got %d", c.Fmt.IndentSize)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("log.encoding must be console or json, got %q", c.Log.Encoding)
	}
	switch c.Lang.Locale {
	case "en", "zh":
	default:
		return fmt.Errorf("lang.locale must be en or zh, got %q", c.Lang.Locale)
	}
	return nil
}

// Root 配置文件所在目录，未从文件加载时为当前目录
func (c *Config) Root() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// OutputDir 输出目录，相对路径按配置文件所在目录解析
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Build.Output) {
		return c.Build.Output
	}
	return filepath.Join(c.Root(), c.Build.Output)
}

// MainFile 入口文件路径
func (c *Config) MainFile() string {
	if c.Project.Main == "" || filepath.IsAbs(c.Project.Main) {
		return c.Project.Main
	}
	return filepath.Join(c.Root(), c.Project.Main)
}

// Apply 应用语言设置
func (c *Config) Apply() {
	i18n.SetLanguageFromString(c.Lang.Locale)
}

// Find 从指定路径向上查找配置文件
// 返回配置文件的完整路径，找不到时返回空字符串
func Find(start string) string {
	info, err := os.Stat(start)
	if err != nil {
		return ""
	}

	dir := start
	if !info.IsDir() {
		dir = filepath.Dir(start)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Discover 查找并加载配置，找不到时返回默认配置
func Discover(start string) (*Config, error) {
	path := Find(start)
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Save 以 TOML 写出配置
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ForDirectory 以目录名作为项目名生成默认配置
func ForDirectory(dir string) *Config {
	cfg := Default()
	base := filepath.Base(dir)
	if name := sanitizeName(base); name != "" {
		cfg.Project.Name = name
	}
	return cfg
}

// sanitizeName 清理项目名
func sanitizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")

	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return strings.Trim(result.String(), "-")
}

package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// Serializer 字节码序列化器
type Serializer struct {
	flags       uint16
	buf         *bytes.Buffer
	stringPool  []string
	stringIndex map[string]uint32
}

// NewSerializer 创建序列化器
func NewSerializer(flags uint16) *Serializer {
	return &Serializer{
		flags:       flags,
		buf:         new(bytes.Buffer),
		stringPool:  make([]string, 0),
		stringIndex: make(map[string]uint32),
	}
}

// Serialize 用默认选项序列化代码对象树
func Serialize(code *Code) ([]byte, error) {
	return NewSerializer(0).Serialize(code)
}

// Serialize 序列化代码对象树，写出前先验证
func (s *Serializer) Serialize(code *Code) ([]byte, error) {
	if err := Verify(code); err != nil {
		return nil, &FormatError{Message: "refusing to serialize invalid code", Err: err}
	}

	// 第一遍：收集所有字符串到字符串池
	s.collectStrings(code)

	payload := new(bytes.Buffer)
	payload.Write(s.serializeStringPool())
	s.writeCode(payload, code)

	sum := blake2b.Sum256(payload.Bytes())
	s.buf.Reset()
	s.writeHeader(uint32(payload.Len()), sum)
	s.buf.Write(payload.Bytes())
	return s.buf.Bytes(), nil
}

// writeHeader 写入文件头
func (s *Serializer) writeHeader(length uint32, sum [32]byte) {
	// Magic (4 bytes)
	binary.Write(s.buf, binary.BigEndian, MagicNumber)
	// Version (2 bytes)
	s.buf.WriteByte(MajorVersion)
	s.buf.WriteByte(MinorVersion)
	// Flags (2 bytes)
	binary.Write(s.buf, binary.BigEndian, s.flags)
	// Payload length (4 bytes)
	binary.Write(s.buf, binary.BigEndian, length)
	// Checksum (32 bytes)
	s.buf.Write(sum[:])
}

// addString 添加字符串到池，返回索引
func (s *Serializer) addString(str string) uint32 {
	if idx, ok := s.stringIndex[str]; ok {
		return idx
	}
	idx := uint32(len(s.stringPool))
	s.stringPool = append(s.stringPool, str)
	s.stringIndex[str] = idx
	return idx
}

// optString 空字符串记为 noString
func (s *Serializer) optString(str string) uint32 {
	if str == "" {
		return noString
	}
	return s.addString(str)
}

// collectStrings 收集代码对象树中的所有字符串
func (s *Serializer) collectStrings(code *Code) {
	s.addString(code.Name)
	s.addString(code.Filename)
	for _, p := range code.Params {
		s.addString(p)
	}
	s.optString(code.Vararg)
	s.optString(code.Kwarg)
	for _, k := range code.Constants {
		switch k.Kind {
		case ConstName, ConstString:
			s.addString(k.Str)
		case ConstCode:
			s.collectStrings(k.Code)
		}
	}
}

// serializeStringPool 序列化字符串池
func (s *Serializer) serializeStringPool() []byte {
	buf := new(bytes.Buffer)
	// 字符串数量
	binary.Write(buf, binary.BigEndian, uint32(len(s.stringPool)))
	// 每个字符串：长度 + 数据
	for _, str := range s.stringPool {
		data := []byte(str)
		binary.Write(buf, binary.BigEndian, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes()
}

// writeCode 递归写入代码对象
func (s *Serializer) writeCode(buf *bytes.Buffer, code *Code) {
	binary.Write(buf, binary.BigEndian, s.addString(code.Name))
	binary.Write(buf, binary.BigEndian, s.addString(code.Filename))
	buf.WriteByte(byte(code.Kind))
	binary.Write(buf, binary.BigEndian, uint32(code.FirstLine))

	binary.Write(buf, binary.BigEndian, uint16(len(code.Params)))
	for _, p := range code.Params {
		binary.Write(buf, binary.BigEndian, s.addString(p))
	}
	binary.Write(buf, binary.BigEndian, s.optString(code.Vararg))
	binary.Write(buf, binary.BigEndian, s.optString(code.Kwarg))

	// 指令
	binary.Write(buf, binary.BigEndian, uint32(code.IP()))
	buf.Write(code.Instructions)
	if s.flags&FlagNoLines == 0 {
		for _, line := range code.Lines {
			binary.Write(buf, binary.BigEndian, uint32(line))
		}
	}

	// 常量池
	binary.Write(buf, binary.BigEndian, uint32(len(code.Constants)))
	for _, k := range code.Constants {
		buf.WriteByte(byte(k.Kind))
		switch k.Kind {
		case ConstName, ConstString:
			binary.Write(buf, binary.BigEndian, s.addString(k.Str))
		case ConstInteger:
			binary.Write(buf, binary.BigEndian, k.Int)
		case ConstFloat:
			binary.Write(buf, binary.BigEndian, math.Float64bits(k.Float))
		case ConstCode:
			s.writeCode(buf, k.Code)
		}
	}
}

// WriteFile 序列化并写入文件，必要时创建目录
func WriteFile(path string, code *Code) error {
	data, err := Serialize(code)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// OutputPath 源文件对应的编译产物路径
func OutputPath(source, outDir string) string {
	base := filepath.Base(source)
	name := base[:len(base)-len(filepath.Ext(base))] + CompiledFileExtension
	if outDir == "" {
		return filepath.Join(filepath.Dir(source), name)
	}
	return filepath.Join(outDir, name)
}

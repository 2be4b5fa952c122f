package bytecode

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"golang.org/x/crypto/blake2b"
)

// maxCodeDepth 嵌套代码对象的最大深度
const maxCodeDepth = 256

// Deserializer 字节码反序列化器
type Deserializer struct {
	data       []byte
	pos        int
	flags      uint16
	stringPool []string
}

// NewDeserializer 创建反序列化器
func NewDeserializer(data []byte) *Deserializer {
	return &Deserializer{
		data:       data,
		pos:        0,
		stringPool: make([]string, 0),
	}
}

// Deserialize 反序列化并验证编译产物
func Deserialize(data []byte) (*Code, error) {
	return NewDeserializer(data).Deserialize()
}

// Deserialize 反序列化编译后的文件
func (d *Deserializer) Deserialize() (*Code, error) {
	// 读取并验证头部和校验和
	if err := d.readHeader(); err != nil {
		return nil, err
	}

	// 读取字符串池
	if err := d.readStringPool(); err != nil {
		return nil, err
	}

	// 读取代码对象树
	code, err := d.readCode(0)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, formatErrorf("%d trailing bytes", len(d.data)-d.pos)
	}

	// 字节码验证
	if err := Verify(code); err != nil {
		return nil, &FormatError{Message: "bytecode verification failed", Err: err}
	}
	return code, nil
}

// readHeader 读取文件头
func (d *Deserializer) readHeader() error {
	if err := ValidateHeader(d.data); err != nil {
		return err
	}
	d.flags = binary.BigEndian.Uint16(d.data[6:8])
	length := binary.BigEndian.Uint32(d.data[8:12])
	if int(length) != len(d.data)-HeaderSize {
		return formatErrorf("payload length %d does not match file size", length)
	}

	var want [32]byte
	copy(want[:], d.data[12:HeaderSize])
	if got := blake2b.Sum256(d.data[HeaderSize:]); !bytes.Equal(got[:], want[:]) {
		return formatErrorf("checksum mismatch")
	}

	d.pos = HeaderSize
	return nil
}

// readStringPool 读取字符串池
func (d *Deserializer) readStringPool() error {
	count, err := d.readU32()
	if err != nil {
		return err
	}
	if int(count) > len(d.data)-d.pos {
		return formatErrorf("string pool corrupted")
	}

	d.stringPool = make([]string, count)
	for i := uint32(0); i < count; i++ {
		length, err := d.readU32()
		if err != nil {
			return err
		}
		if d.pos+int(length) > len(d.data) {
			return formatErrorf("string pool corrupted")
		}
		d.stringPool[i] = string(d.data[d.pos : d.pos+int(length)])
		d.pos += int(length)
	}
	return nil
}

// readCode 递归读取代码对象
func (d *Deserializer) readCode(depth int) (*Code, error) {
	if depth > maxCodeDepth {
		return nil, formatErrorf("code objects nested too deeply")
	}
	code := &Code{}
	var err error

	if code.Name, err = d.readString(); err != nil {
		return nil, err
	}
	if code.Filename, err = d.readString(); err != nil {
		return nil, err
	}
	kind, err := d.readU8()
	if err != nil {
		return nil, err
	}
	if int(kind) >= len(codeKindNames) {
		return nil, formatErrorf("unknown code kind %d", kind)
	}
	code.Kind = CodeKind(kind)
	firstLine, err := d.readU32()
	if err != nil {
		return nil, err
	}
	code.FirstLine = int(firstLine)

	nparams, err := d.readU16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nparams); i++ {
		p, err := d.readString()
		if err != nil {
			return nil, err
		}
		code.Params = append(code.Params, p)
	}
	if code.Vararg, err = d.readOptString(); err != nil {
		return nil, err
	}
	if code.Kwarg, err = d.readOptString(); err != nil {
		return nil, err
	}

	// 指令
	count, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if int(count) > (len(d.data)-d.pos)/2 {
		return nil, formatErrorf("bytecode corrupted")
	}
	code.Instructions = append([]byte(nil), d.data[d.pos:d.pos+int(count)*2]...)
	d.pos += int(count) * 2
	code.Lines = make([]int, count)
	if d.flags&FlagNoLines == 0 {
		for i := range code.Lines {
			line, err := d.readU32()
			if err != nil {
				return nil, err
			}
			code.Lines[i] = int(line)
		}
	}

	// 常量池
	nconst, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if int(nconst) > len(d.data)-d.pos {
		return nil, formatErrorf("constant pool corrupted")
	}
	code.Constants = make([]Constant, 0, nconst)
	for i := uint32(0); i < nconst; i++ {
		k, err := d.readConstant(depth)
		if err != nil {
			return nil, err
		}
		code.Constants = append(code.Constants, k)
	}
	return code, nil
}

// readConstant 读取一个常量
func (d *Deserializer) readConstant(depth int) (Constant, error) {
	tag, err := d.readU8()
	if err != nil {
		return Constant{}, err
	}
	k := Constant{Kind: ConstKind(tag)}
	switch k.Kind {
	case ConstName, ConstString:
		k.Str, err = d.readString()
	case ConstInteger:
		k.Int, err = d.readI64()
	case ConstFloat:
		k.Float, err = d.readF64()
	case ConstCode:
		k.Code, err = d.readCode(depth + 1)
	default:
		return Constant{}, formatErrorf("unknown constant tag %d", tag)
	}
	return k, err
}

func (d *Deserializer) readU8() (uint8, error) {
	if d.pos+1 > len(d.data) {
		return 0, formatErrorf("unexpected end of file")
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

func (d *Deserializer) readU16() (uint16, error) {
	if d.pos+2 > len(d.data) {
		return 0, formatErrorf("unexpected end of file")
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Deserializer) readU32() (uint32, error) {
	if d.pos+4 > len(d.data) {
		return 0, formatErrorf("unexpected end of file")
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Deserializer) readI64() (int64, error) {
	if d.pos+8 > len(d.data) {
		return 0, formatErrorf("unexpected end of file")
	}
	v := int64(binary.BigEndian.Uint64(d.data[d.pos:]))
	d.pos += 8
	return v, nil
}

func (d *Deserializer) readF64() (float64, error) {
	bits, err := d.readI64()
	return math.Float64frombits(uint64(bits)), err
}

// readString 读取字符串池下标并取出字符串
func (d *Deserializer) readString() (string, error) {
	idx, err := d.readU32()
	if err != nil {
		return "", err
	}
	if int(idx) >= len(d.stringPool) {
		return "", formatErrorf("string index %d out of range", idx)
	}
	return d.stringPool[idx], nil
}

func (d *Deserializer) readOptString() (string, error) {
	idx, err := d.readU32()
	if err != nil || idx == noString {
		return "", err
	}
	if int(idx) >= len(d.stringPool) {
		return "", formatErrorf("string index %d out of range", idx)
	}
	return d.stringPool[idx], nil
}

// ValidateHeader 只检查魔数和版本
func ValidateHeader(data []byte) error {
	if len(data) < HeaderSize {
		return formatErrorf("file too small")
	}
	if binary.BigEndian.Uint32(data[0:4]) != MagicNumber {
		return formatErrorf("invalid magic number, not a Pyra compiled file")
	}
	major, minor := data[4], data[5]
	if major != MajorVersion {
		return formatErrorf("incompatible version: file is v%d.%d, reader is v%d.%d", major, minor, MajorVersion, MinorVersion)
	}
	return nil
}

// ReadFile 读取并验证编译产物文件
func ReadFile(path string) (*Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Message: "read " + path, Err: err}
	}
	return Deserialize(data)
}

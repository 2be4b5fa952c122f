package bytecode

import (
	"fmt"
)

// ============================================================================
// Pyra 编译产物文件格式定义
// ============================================================================
//
// 文件头（大端序）：
//
//	magic   u32      "PYRC"
//	major   u8
//	minor   u8
//	flags   u16
//	length  u32      负载字节数
//	sum     [32]byte 负载的 blake2b-256 校验和
//
// 负载：字符串表，然后是递归的代码对象树。
//
// ============================================================================

const (
	// CompiledFileExtension 编译产物文件后缀
	CompiledFileExtension = ".pyc"

	// CBORFileExtension CBOR 交换格式文件后缀
	CBORFileExtension = ".pyc.cbor"

	// MagicNumber 文件魔数 "PYRC" in ASCII
	MagicNumber uint32 = 0x50595243

	// 版本号
	MajorVersion uint8 = 1
	MinorVersion uint8 = 0
)

// 文件标志位
const (
	FlagNoLines uint16 = 1 << 0 // 不含行号表
)

// 文件头结构大小
const HeaderSize = 4 + 1 + 1 + 2 + 4 + 32

// noString 表示可选字符串字段为空
const noString = ^uint32(0)

// FormatError 编译产物文件格式错误
type FormatError struct {
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid compiled file: %s: %v", e.Message, e.Err)
	}
	return "invalid compiled file: " + e.Message
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...interface{}) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

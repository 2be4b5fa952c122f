package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ============================================================================
// CBOR 交换格式
// ============================================================================
//
// 与二进制文件格式承载同一棵代码对象树，使用规范编码，
// 相同的代码对象总是得到相同的字节。
//
// ============================================================================

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireCode 代码对象的 CBOR 表示
type wireCode struct {
	Version      uint8          `cbor:"1,keyasint"`
	Name         string         `cbor:"2,keyasint"`
	Filename     string         `cbor:"3,keyasint"`
	Kind         uint8          `cbor:"4,keyasint"`
	FirstLine    int            `cbor:"5,keyasint"`
	Params       []string       `cbor:"6,keyasint,omitempty"`
	Vararg       string         `cbor:"7,keyasint,omitempty"`
	Kwarg        string         `cbor:"8,keyasint,omitempty"`
	Instructions []byte         `cbor:"9,keyasint"`
	Lines        []int          `cbor:"10,keyasint"`
	Constants    []wireConstant `cbor:"11,keyasint,omitempty"`
}

// wireConstant 常量的 CBOR 表示，按 Tag 只填一个值字段
type wireConstant struct {
	Tag   uint8     `cbor:"1,keyasint"`
	Str   string    `cbor:"2,keyasint,omitempty"`
	Int   int64     `cbor:"3,keyasint,omitempty"`
	Float float64   `cbor:"4,keyasint,omitempty"`
	Code  *wireCode `cbor:"5,keyasint,omitempty"`
}

func toWire(code *Code) *wireCode {
	w := &wireCode{
		Version:      MajorVersion,
		Name:         code.Name,
		Filename:     code.Filename,
		Kind:         uint8(code.Kind),
		FirstLine:    code.FirstLine,
		Params:       code.Params,
		Vararg:       code.Vararg,
		Kwarg:        code.Kwarg,
		Instructions: code.Instructions,
		Lines:        code.Lines,
	}
	for _, k := range code.Constants {
		wk := wireConstant{Tag: uint8(k.Kind), Str: k.Str, Int: k.Int, Float: k.Float}
		if k.Kind == ConstCode {
			wk.Code = toWire(k.Code)
		}
		w.Constants = append(w.Constants, wk)
	}
	return w
}

func fromWire(w *wireCode, depth int) (*Code, error) {
	if depth > maxCodeDepth {
		return nil, formatErrorf("code objects nested too deeply")
	}
	if w.Version != MajorVersion {
		return nil, formatErrorf("incompatible CBOR version %d", w.Version)
	}
	if int(w.Kind) >= len(codeKindNames) {
		return nil, formatErrorf("unknown code kind %d", w.Kind)
	}
	code := &Code{
		Name:         w.Name,
		Filename:     w.Filename,
		Kind:         CodeKind(w.Kind),
		FirstLine:    w.FirstLine,
		Params:       w.Params,
		Vararg:       w.Vararg,
		Kwarg:        w.Kwarg,
		Instructions: w.Instructions,
		Lines:        w.Lines,
	}
	for _, wk := range w.Constants {
		k := Constant{Kind: ConstKind(wk.Tag), Str: wk.Str, Int: wk.Int, Float: wk.Float}
		switch k.Kind {
		case ConstName, ConstString, ConstInteger, ConstFloat:
		case ConstCode:
			if wk.Code == nil {
				return nil, formatErrorf("code constant without body")
			}
			nested, err := fromWire(wk.Code, depth+1)
			if err != nil {
				return nil, err
			}
			k.Code = nested
		default:
			return nil, formatErrorf("unknown constant tag %d", wk.Tag)
		}
		code.Constants = append(code.Constants, k)
	}
	return code, nil
}

// MarshalCBOR 把代码对象树编码为规范 CBOR
func MarshalCBOR(code *Code) ([]byte, error) {
	if err := Verify(code); err != nil {
		return nil, &FormatError{Message: "refusing to serialize invalid code", Err: err}
	}
	return cborEncMode.Marshal(toWire(code))
}

// UnmarshalCBOR 解码并验证 CBOR 代码对象树
func UnmarshalCBOR(data []byte) (*Code, error) {
	var w wireCode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, &FormatError{Message: "decode CBOR", Err: err}
	}
	code, err := fromWire(&w, 0)
	if err != nil {
		return nil, err
	}
	if err := Verify(code); err != nil {
		return nil, &FormatError{Message: "bytecode verification failed", Err: err}
	}
	return code, nil
}

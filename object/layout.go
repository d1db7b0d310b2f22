package object

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/objbridge/errors"
)

// Kind is the storage class of a field.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindHandle:
		return "handle"
	default:
		return "invalid"
	}
}

// Info is the storage class, size and alignment of one field type.
type Info struct {
	Kind  Kind
	Size  uint32
	Align uint32
}

// Layout is the C struct layout of a schema.
type Layout struct {
	Fields  []Info
	Offsets []uint32
	Size    uint32
	Align   uint32
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Calculator classifies WIT types and computes record layouts.
type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

// Calculate returns the field info for t, or KindInvalid for types that
// cannot be stored in a composite.
func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.Bool:
		return Info{Kind: KindBool, Size: 1, Align: 1}
	case wit.S8:
		return Info{Kind: KindInt, Size: 1, Align: 1}
	case wit.U8:
		return Info{Kind: KindUint, Size: 1, Align: 1}
	case wit.S16:
		return Info{Kind: KindInt, Size: 2, Align: 2}
	case wit.U16:
		return Info{Kind: KindUint, Size: 2, Align: 2}
	case wit.S32:
		return Info{Kind: KindInt, Size: 4, Align: 4}
	case wit.U32, wit.Char:
		return Info{Kind: KindUint, Size: 4, Align: 4}
	case wit.S64:
		return Info{Kind: KindInt, Size: 8, Align: 8}
	case wit.U64:
		return Info{Kind: KindUint, Size: 8, Align: 8}
	case wit.F32:
		return Info{Kind: KindFloat, Size: 4, Align: 4}
	case wit.F64:
		return Info{Kind: KindFloat, Size: 8, Align: 8}
	case wit.String:
		return handleInfo
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{}
	}
}

var handleInfo = Info{Kind: KindHandle, Size: 8, Align: 8}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record, *wit.List, *wit.Option, *wit.Own:
		info = handleInfo
	case wit.Type:
		info = c.Calculate(kind)
	}

	c.cache[t] = info
	return info
}

// Record lays out fields in order with C alignment rules.
func (c *Calculator) Record(fields []Field) (Layout, error) {
	l := Layout{
		Fields:  make([]Info, len(fields)),
		Offsets: make([]uint32, len(fields)),
		Align:   1,
	}

	offset := uint32(0)
	for i, f := range fields {
		info := c.Calculate(f.Type)
		if info.Kind == KindInvalid {
			return Layout{}, errors.New(errors.PhaseLayout, errors.KindUnsupported).
				Path(f.Name).
				BridgeType(TypeString(f.Type)).
				Detail("field type cannot be stored in a composite").
				Build()
		}

		offset = alignTo(offset, info.Align)
		l.Fields[i] = info
		l.Offsets[i] = offset

		if info.Align > l.Align {
			l.Align = info.Align
		}
		offset += info.Size
	}

	l.Size = alignTo(offset, l.Align)
	return l, nil
}

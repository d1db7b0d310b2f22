package object

import (
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/objbridge/errors"
)

// Field is one named member of a composite.
type Field struct {
	Type wit.Type
	Name string
}

// Schema describes a composite type and its layout.
type Schema struct {
	index  map[string]int
	Name   string
	Fields []Field
	Layout Layout
}

// NewSchema validates fields and computes the layout.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseLayout, "schema name is empty")
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
				Path(name).
				Detail("field %d has no name", i).
				Build()
		}
		if f.Type == nil {
			return nil, errors.NilPointer(errors.PhaseLayout, []string{name, f.Name}, "wit.Type")
		}
		if _, dup := index[f.Name]; dup {
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
				Path(name, f.Name).
				Detail("duplicate field").
				Build()
		}
		index[f.Name] = i
	}

	layout, err := NewCalculator().Record(fields)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.Path = append([]string{name}, e.Path...)
		}
		return nil, err
	}

	return &Schema{
		Name:   name,
		Fields: fields,
		Layout: layout,
		index:  index,
	}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for
// package-level schema definitions.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Index returns the position of the named field.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Size returns the byte size of the backing block.
func (s *Schema) Size() int {
	return int(s.Layout.Size)
}

func (s *Schema) lookup(phase errors.Phase, name string, want Kind) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, errors.FieldMissing(phase, []string{s.Name}, name)
	}
	if got := s.Layout.Fields[i].Kind; got != want {
		return 0, errors.New(phase, errors.KindTypeMismatch).
			Path(s.Name, name).
			GoType(want.String()).
			BridgeType(TypeString(s.Fields[i].Type)).
			Build()
	}
	return i, nil
}

// WIT renders the schema as a WIT record definition.
func (s *Schema) WIT() string {
	var b strings.Builder
	b.WriteString("record ")
	b.WriteString(s.Name)
	b.WriteString(" {\n")
	for _, f := range s.Fields {
		b.WriteString("    ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(TypeString(f.Type))
		b.WriteString(",\n")
	}
	b.WriteString("}")
	return b.String()
}

// TypeString renders t in WIT syntax.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return "nil"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v == nil {
			return "nil"
		}
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Own:
			return "own<" + TypeString(k.Type) + ">"
		case *wit.Record:
			return "record"
		case wit.Type:
			return TypeString(k)
		}
		return "typedef"
	default:
		return "unknown"
	}
}

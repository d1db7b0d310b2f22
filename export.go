package objbridge

import (
	"bytes"
	"fmt"

	"github.com/wippyai/objbridge/codec"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/object"
)

// maxExportDepth bounds nesting of composite exports.
const maxExportDepth = 64

// Export copies the object tree rooted at h into plain Go values:
// string, []byte, []T for scalar arrays, []any for object arrays and
// map[string]any for composites. Null handles export as nil.
func (rt *Runtime) Export(h Handle) (any, error) {
	return rt.export(h, nil)
}

func (rt *Runtime) export(h Handle, path []string) (any, error) {
	if h.IsNull() {
		return nil, nil
	}
	if len(path) > maxExportDepth {
		return nil, errors.New(errors.PhaseDecode, errors.KindOverflow).
			Path(path...).
			Detail("nesting deeper than %d", maxExportDepth).
			Build()
	}

	v, ok := rt.table.Get(h)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidHandle).
			Path(path...).
			Handle(uint64(h)).
			Build()
	}

	switch o := v.(type) {
	case *codec.String:
		return codec.DecodeString(o)
	case *codec.Data:
		return bytes.Clone(o.Bytes()), nil
	case *codec.ObjectArray:
		out := make([]any, o.Len())
		for i, child := range o.Handles() {
			ev, err := rt.export(child, append(path, fmt.Sprintf("[%d]", i)))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *object.Object:
		return rt.exportObject(o, path)
	case interface{ Export() any }:
		return o.Export(), nil
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("export of %T", v))
	}
}

func (rt *Runtime) exportObject(o *object.Object, path []string) (map[string]any, error) {
	s := o.Schema()
	out := make(map[string]any, len(s.Fields))
	for i, f := range s.Fields {
		v, err := o.Field(i)
		if err != nil {
			return nil, err
		}
		if v.Kind != object.KindHandle {
			out[f.Name] = v.Interface()
			continue
		}
		ev, err := rt.export(v.Handle(), append(path, f.Name))
		if err != nil {
			return nil, err
		}
		out[f.Name] = ev
	}
	return out, nil
}

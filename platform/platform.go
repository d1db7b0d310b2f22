package platform

import (
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/object"
)

var (
	// ComplexSchema is the element type returned by ComplexData.
	ComplexSchema = object.MustSchema("complex",
		object.Field{Name: "a", Type: wit.String{}},
		object.Field{Name: "b", Type: wit.S64{}},
		object.Field{Name: "c", Type: wit.Bool{}},
	)

	// NullableSchema is the record returned by ReturnNullable.
	NullableSchema = object.MustSchema("test",
		object.Field{Name: "null", Type: wit.Bool{}},
		object.Field{Name: "num", Type: wit.S64{}},
	)

	// CustomObjectSchema is the record returned by CustomObject.
	CustomObjectSchema = object.MustSchema("custom-object",
		object.Field{Name: "a", Type: wit.S64{}},
		object.Field{Name: "b", Type: wit.Bool{}},
	)
)

// nullableNum is the payload ReturnNullable stores in a present result.
const nullableNum = 20309

// Platform implements the sample functions on top of a runtime.
type Platform struct {
	rt     *objbridge.Runtime
	logger *zap.Logger
}

func New(rt *objbridge.Runtime) *Platform {
	return &Platform{rt: rt, logger: rt.Logger().Named("platform")}
}

// Runtime returns the runtime objects are created in.
func (p *Platform) Runtime() *objbridge.Runtime { return p.rt }

// Greeting builds "Hello <name>!".
func (p *Platform) Greeting(name string) (objbridge.Handle, error) {
	return p.rt.NewString("Hello " + name + "!")
}

// GetGreeting greets the borrowed string name.
func (p *Platform) GetGreeting(name objbridge.Handle) objbridge.Handle {
	s, err := p.rt.StringValue(name)
	if err != nil {
		return p.rt.Return(objbridge.Null, err)
	}
	return p.rt.Return(p.Greeting(s))
}

// Echo returns its argument with one extra reference owned by the caller.
func (p *Platform) Echo(s objbridge.Handle) objbridge.Handle {
	if _, err := p.rt.String(s); err != nil {
		return p.rt.Return(objbridge.Null, err)
	}
	p.rt.Retain(s)
	return s
}

// SendAndGetData returns a copy of the borrowed data object.
func (p *Platform) SendAndGetData(data objbridge.Handle) objbridge.Handle {
	b, err := p.rt.Data(data)
	if err != nil {
		return p.rt.Return(objbridge.Null, err)
	}
	return p.rt.Return(p.rt.NewData(b))
}

// GetData returns the bytes 1, 2, 3.
func (p *Platform) GetData() objbridge.Handle {
	return p.rt.Return(p.rt.NewData([]byte{1, 2, 3}))
}

// IntArray returns the array [1, 2, 3].
func (p *Platform) IntArray() objbridge.Handle {
	return p.rt.Return(objbridge.NewArray(p.rt, []int64{1, 2, 3}))
}

// CustomObject returns {a: 3, b: true}.
func (p *Platform) CustomObject() objbridge.Handle {
	return p.rt.Return(p.rt.NewObject(object.NewBuilder(CustomObjectSchema).
		Int("a", 3).
		Bool("b", true)))
}

// ReturnNullable returns Null when null is set, otherwise a record holding
// null=false and a fixed number.
func (p *Platform) ReturnNullable(null bool) objbridge.Handle {
	if null {
		return objbridge.Null
	}
	return p.rt.Return(p.rt.NewObject(object.NewBuilder(NullableSchema).
		Bool("null", null).
		Int("num", nullableNum)))
}

// ComplexData returns an array holding one complex record.
func (p *Platform) ComplexData() objbridge.Handle {
	return p.rt.Return(p.complexData())
}

func (p *Platform) complexData() (objbridge.Handle, error) {
	a, err := p.rt.NewString("Brendan")
	if err != nil {
		return objbridge.Null, err
	}

	elem, err := p.rt.NewObject(object.NewBuilder(ComplexSchema).
		Handle("a", a).
		Int("b", 0).
		Bool("c", true))
	if err != nil {
		p.rt.Release(a)
		return objbridge.Null, err
	}

	return p.array([]objbridge.Handle{elem})
}

// array wraps items in an object array, releasing them if that fails.
func (p *Platform) array(items []objbridge.Handle) (objbridge.Handle, error) {
	h, err := p.rt.NewObjectArray(items)
	if err != nil {
		for _, it := range items {
			p.rt.Release(it)
		}
		return objbridge.Null, err
	}
	return h, nil
}

func unsupported(what string) error {
	return errors.Unsupported(errors.PhaseCall, what)
}

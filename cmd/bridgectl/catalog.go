package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/object"
	"github.com/wippyai/objbridge/platform"
)

// sample is one collaborator function callable from the command line.
type sample struct {
	call    func(ctx context.Context, p *platform.Platform, args []objbridge.Handle, raw []string) objbridge.Handle
	name    string
	result  string
	params  []param
	example []string
	// heavy samples touch the filesystem and are skipped by the stress run.
	heavy bool
}

type param struct {
	typ  wit.Type
	name string
}

var samples = []sample{
	{
		name:    "get_greeting",
		example: []string{"Brendan"},
		params:  []param{{name: "name", typ: wit.String{}}},
		result:  "string",
		call: func(_ context.Context, p *platform.Platform, args []objbridge.Handle, _ []string) objbridge.Handle {
			return p.GetGreeting(args[0])
		},
	},
	{
		name:    "echo",
		example: []string{"Brendan"},
		params:  []param{{name: "string", typ: wit.String{}}},
		result:  "string",
		call: func(_ context.Context, p *platform.Platform, args []objbridge.Handle, _ []string) objbridge.Handle {
			return p.Echo(args[0])
		},
	},
	{
		name:    "send_and_get_data",
		example: []string{"hello"},
		params:  []param{{name: "data", typ: wit.String{}}},
		result:  "list<u8>",
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, raw []string) objbridge.Handle {
			rt := p.Runtime()
			data, err := rt.NewData([]byte(raw[0]))
			if err != nil {
				return rt.Return(objbridge.Null, err)
			}
			defer rt.Release(data)
			return p.SendAndGetData(data)
		},
	},
	{
		name:   "get_file_thumbnail_base64",
		heavy:  true,
		params: []param{{name: "path", typ: wit.String{}}},
		result: "string",
		call: func(_ context.Context, p *platform.Platform, args []objbridge.Handle, _ []string) objbridge.Handle {
			return p.GetFileThumbnailBase64(args[0])
		},
	},
	{
		name:   "complex_data",
		result: "list<" + platform.ComplexSchema.Name + ">",
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, _ []string) objbridge.Handle {
			return p.ComplexData()
		},
	},
	{
		name:   "get_data",
		result: "list<u8>",
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, _ []string) objbridge.Handle {
			return p.GetData()
		},
	},
	{
		name:   "get_int_array",
		result: "list<s64>",
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, _ []string) objbridge.Handle {
			return p.IntArray()
		},
	},
	{
		name:   "get_custom_object",
		result: platform.CustomObjectSchema.Name,
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, _ []string) objbridge.Handle {
			return p.CustomObject()
		},
	},
	{
		name:   "get_mounts",
		heavy:  true,
		result: "list<" + platform.VolumeSchema.Name + ">",
		call: func(ctx context.Context, p *platform.Platform, _ []objbridge.Handle, _ []string) objbridge.Handle {
			return p.GetMounts(ctx)
		},
	},
	{
		name:    "return_nullable",
		example: []string{"false"},
		params:  []param{{name: "null", typ: wit.Bool{}}},
		result:  "option<" + platform.NullableSchema.Name + ">",
		call: func(_ context.Context, p *platform.Platform, _ []objbridge.Handle, raw []string) objbridge.Handle {
			null, _ := parseBool(raw[0])
			return p.ReturnNullable(null)
		},
	},
}

func init() {
	sort.Slice(samples, func(i, j int) bool { return samples[i].name < samples[j].name })
}

func findSample(name string) (sample, bool) {
	for _, s := range samples {
		if s.name == name {
			return s, true
		}
	}
	return sample{}, false
}

func (s sample) signature() string {
	var params []string
	for _, p := range s.params {
		params = append(params, p.name+": "+object.TypeString(p.typ))
	}
	return s.name + "(" + strings.Join(params, ", ") + ") -> " + s.result
}

// invoke calls s with raw string arguments. String parameters are passed as
// borrowed string objects that live in a pool drained after the call. The
// caller owns the returned handle.
func (s sample) invoke(ctx context.Context, p *platform.Platform, raw []string) (objbridge.Handle, error) {
	if len(raw) != len(s.params) {
		return objbridge.Null, fmt.Errorf("%s takes %d arguments, got %d", s.name, len(s.params), len(raw))
	}

	rt := p.Runtime()
	pool := rt.NewPool()
	defer pool.Drain()

	args := make([]objbridge.Handle, len(s.params))

	for i, prm := range s.params {
		switch prm.typ.(type) {
		case wit.String:
			h, err := rt.NewString(raw[i])
			if err != nil {
				return objbridge.Null, fmt.Errorf("argument %s: %w", prm.name, err)
			}
			args[i] = pool.Add(h)
		case wit.Bool:
			if _, err := parseBool(raw[i]); err != nil {
				return objbridge.Null, fmt.Errorf("argument %s: %w", prm.name, err)
			}
		}
	}

	return s.call(ctx, p, args, raw), nil
}

func parseBool(v string) (bool, error) {
	switch v {
	case "1", "yes":
		return true, nil
	case "0", "no", "":
		return false, nil
	}
	return strconv.ParseBool(v)
}

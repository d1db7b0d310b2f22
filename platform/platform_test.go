package platform

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/handle"
)

func newPlatform(t *testing.T) *Platform {
	t.Helper()
	rt, err := objbridge.New(objbridge.Config{Debug: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return New(rt)
}

func assertNoLeaks(t *testing.T, rt *objbridge.Runtime) {
	t.Helper()
	if leaks := rt.Leaks(); len(leaks) != 0 {
		t.Fatalf("leaked %d objects: %+v", len(leaks), leaks)
	}
	if st := rt.Stats().Memory; st.Live() != 0 {
		t.Fatalf("leaked storage: %+v", st)
	}
}

func TestGetGreeting(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	name, _ := rt.NewString("Brendan")
	greeting := p.GetGreeting(name)

	if rt.State(greeting) != handle.StateTransferred {
		t.Fatalf("result state = %s, want transferred", rt.State(greeting))
	}
	got, err := rt.StringValue(greeting)
	if err != nil || got != "Hello Brendan!" {
		t.Fatalf("greeting = %q, %v", got, err)
	}

	rt.ReleaseForeign(greeting)
	rt.Release(name)
	assertNoLeaks(t, rt)
}

func TestGetGreetingWrongType(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	d, _ := rt.NewData([]byte("x"))
	if h := p.GetGreeting(d); !h.IsNull() {
		t.Fatalf("GetGreeting(data) = %s, want null", h)
	}
	rt.Release(d)
	assertNoLeaks(t, rt)
}

func TestMemoryPressure(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()
	name, _ := rt.NewString("Brendan")

	for range 10_000 {
		g := p.GetGreeting(name)
		if s, _ := rt.StringValue(g); s != "Hello Brendan!" {
			t.Fatalf("greeting = %q", s)
		}
		rt.ReleaseForeign(g)
	}

	rt.Release(name)
	assertNoLeaks(t, rt)
}

func TestEchoPressure(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()
	name, _ := rt.NewString("Brendan")

	for range 10_000 {
		r := p.Echo(name)
		if r != name {
			t.Fatalf("Echo returned %s, want %s", r, name)
		}
		rt.Release(r)
	}

	if n := rt.RefCount(name); n != 1 {
		t.Fatalf("RefCount = %d after balanced echoes", n)
	}
	rt.Release(name)
	assertNoLeaks(t, rt)
}

func TestPoolPressure(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()
	name, _ := rt.NewString("Brendan")

	for range 10_000 {
		err := rt.WithPool(func(pool *objbridge.Pool) error {
			g := pool.Add(p.Echo(name))
			if s, _ := rt.StringValue(g); s != "Brendan" {
				t.Fatalf("echo = %q", s)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithPool failed: %v", err)
		}
	}

	rt.Release(name)
	assertNoLeaks(t, rt)
}

func TestComplexData(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	var held []objbridge.Handle
	for range 10_000 {
		h := p.ComplexData()
		arr, err := rt.ObjectArray(h)
		if err != nil {
			t.Fatalf("ObjectArray failed: %v", err)
		}
		elem, _ := arr.At(0)
		obj, err := rt.Object(elem)
		if err != nil {
			t.Fatalf("Object failed: %v", err)
		}
		a, _ := obj.Handle("a")
		if s, _ := rt.StringValue(a); s != "Brendan" {
			t.Fatalf("a = %q", s)
		}
		held = append(held, h)
	}

	if got := rt.Stats().Objects; got != 3*10_000 {
		t.Fatalf("Objects = %d, want %d", got, 3*10_000)
	}
	for _, h := range held {
		rt.ReleaseForeign(h)
	}
	assertNoLeaks(t, rt)
}

func TestSendAndGetData(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()
	payload := []byte("hello")

	var held []objbridge.Handle
	for range 10_000 {
		in, _ := rt.NewData(payload)
		out := p.SendAndGetData(in)
		rt.Release(in)

		got, err := rt.Data(out)
		if err != nil {
			t.Fatalf("Data failed: %v", err)
		}
		if diff := cmp.Diff(payload, got); diff != "" {
			t.Fatalf("data (-want +got):\n%s", diff)
		}
		held = append(held, out)
	}

	for _, h := range held {
		rt.ReleaseForeign(h)
	}
	assertNoLeaks(t, rt)
}

func TestReturnNullable(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	if h := p.ReturnNullable(true); !h.IsNull() {
		t.Fatalf("ReturnNullable(true) = %s", h)
	}

	h := p.ReturnNullable(false)
	got, err := rt.Export(h)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"null": false, "num": int64(20309)}, got); diff != "" {
		t.Fatalf("nullable (-want +got):\n%s", diff)
	}
	rt.ReleaseForeign(h)
	assertNoLeaks(t, rt)
}

func TestSamples(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	tests := []struct {
		name string
		call func() objbridge.Handle
		want any
	}{
		{"int_array", p.IntArray, []int64{1, 2, 3}},
		{"data", p.GetData, []byte{1, 2, 3}},
		{"custom_object", p.CustomObject, map[string]any{"a": int64(3), "b": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.call()
			got, err := rt.Export(h)
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
			rt.ReleaseForeign(h)
		})
	}
	assertNoLeaks(t, rt)
}

func TestFileThumbnail(t *testing.T) {
	p := newPlatform(t)
	rt := p.Runtime()

	dir := t.TempDir()
	file := filepath.Join(dir, "icon.bin")
	content := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	if err := os.WriteFile(file, content, 0o600); err != nil {
		t.Fatal(err)
	}

	path, _ := rt.NewString(file)
	h := p.GetFileThumbnailBase64(path)
	got, err := rt.StringValue(h)
	if err != nil {
		t.Fatalf("StringValue failed: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(content); got != want {
		t.Fatalf("thumbnail = %q, want %q", got, want)
	}
	rt.ReleaseForeign(h)

	missing, _ := rt.NewString(filepath.Join(dir, "missing"))
	if h := p.GetFileThumbnailBase64(missing); !h.IsNull() {
		t.Fatalf("missing file returned %s", h)
	}

	rt.Release(path)
	rt.Release(missing)
	assertNoLeaks(t, rt)
}

func TestFileThumbnailTruncates(t *testing.T) {
	p := newPlatform(t)

	file := filepath.Join(t.TempDir(), "big")
	if err := os.WriteFile(file, make([]byte, maxThumbnailBytes+100), 0o600); err != nil {
		t.Fatal(err)
	}

	h, err := p.FileThumbnail(file)
	if err != nil {
		t.Fatalf("FileThumbnail failed: %v", err)
	}
	s, _ := p.Runtime().StringValue(h)
	if len(s) != base64.StdEncoding.EncodedLen(maxThumbnailBytes) {
		t.Fatalf("encoded length = %d", len(s))
	}
	p.Runtime().Release(h)
}

package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf8"
	"unsafe"

	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/memory"
)

func FuzzStringRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("Hello Brendan!")
	f.Add("日本語🦀")
	f.Add("a\x00b")
	f.Add("bad\xff")
	f.Add("\xed\xa0\x80")

	f.Fuzz(func(t *testing.T, in string) {
		alloc := memory.NewCounting(memory.NewHeap())
		s, err := EncodeString(alloc, in)

		if !utf8.ValidString(in) {
			if !errors.Is(err, &errors.Error{Phase: errors.PhaseEncode, Kind: errors.KindInvalidUTF8}) {
				t.Fatalf("EncodeString(%q) = %v, want invalid_utf8", in, err)
			}
			if st := alloc.Stats(); st.Live() != 0 {
				t.Fatalf("rejected input left storage: %+v", st)
			}
			return
		}
		if err != nil {
			t.Fatalf("EncodeString(%q) failed: %v", in, err)
		}

		got, err := DecodeString(s)
		if err != nil {
			t.Fatalf("DecodeString failed: %v", err)
		}
		if got != in {
			t.Fatalf("round trip = %q, want %q", got, in)
		}

		s.Drop()
		if st := alloc.Stats(); st.Live() != 0 || st.LiveBytes != 0 {
			t.Fatalf("leaked: %+v", st)
		}
	})
}

func FuzzDataIntegrity(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte("hello"))
	f.Add([]byte{0xff, 0xfe, 0x00, 0x01})
	f.Add(bytes.Repeat([]byte{0xab}, 4097))

	f.Fuzz(func(t *testing.T, in []byte) {
		alloc := memory.NewCounting(memory.NewHeap())
		src := bytes.Clone(in)

		d, err := EncodeData(alloc, src)
		if err != nil {
			t.Fatalf("EncodeData failed: %v", err)
		}
		ptr := d.Pointer()
		if ptr == nil {
			t.Fatal("nil pointer")
		}
		if d.Len() != len(in) {
			t.Fatalf("Len = %d, want %d", d.Len(), len(in))
		}

		for i := range src {
			src[i] ^= 0xff
		}
		if !bytes.Equal(d.Bytes(), in) {
			t.Fatalf("Bytes = %x, want %x", d.Bytes(), in)
		}
		if p, n := d.View(); p != ptr || n != len(in) {
			t.Fatalf("View = (%p, %d), want (%p, %d)", p, n, ptr, len(in))
		}
		if len(in) > 0 && unsafe.Pointer(&d.Bytes()[0]) != ptr {
			t.Fatal("Bytes does not alias the stored region")
		}

		d.Drop()
		if st := alloc.Stats(); st.Live() != 0 || st.LiveBytes != 0 {
			t.Fatalf("leaked: %+v", st)
		}
	})
}

func FuzzArrayRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff})
	f.Add([]byte{1, 2, 3})

	f.Fuzz(func(t *testing.T, raw []byte) {
		items := make([]int32, len(raw)/4)
		for i := range items {
			items[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}

		alloc := memory.NewCounting(memory.NewHeap())
		arr, err := NewArray(alloc, items)
		if err != nil {
			t.Fatalf("NewArray failed: %v", err)
		}
		if arr.Len() != len(items) {
			t.Fatalf("Len = %d, want %d", arr.Len(), len(items))
		}
		got := arr.Values()
		if len(got) != len(items) {
			t.Fatalf("Values has %d items, want %d", len(got), len(items))
		}
		for i := range items {
			if got[i] != items[i] {
				t.Fatalf("item %d = %d, want %d", i, got[i], items[i])
			}
		}

		arr.Drop()
		if st := alloc.Stats(); st.Live() != 0 || st.LiveBytes != 0 {
			t.Fatalf("leaked: %+v", st)
		}
	})
}

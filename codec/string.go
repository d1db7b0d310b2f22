package codec

import (
	"unicode/utf8"

	"github.com/wippyai/objbridge/buffer"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/memory"
)

// String is a buffer holding valid UTF-8.
type String struct {
	*buffer.Buffer
}

// EncodeString copies s into bridge storage.
func EncodeString(alloc memory.Allocator, s string) (*String, error) {
	if !utf8.ValidString(s) {
		return nil, errors.InvalidUTF8(errors.PhaseEncode, nil, []byte(s))
	}
	buf, err := buffer.Build(alloc, len(s), func(dst []byte) error {
		copy(dst, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &String{Buffer: buf}, nil
}

// EncodeBytes copies UTF-8 bytes received from the foreign side.
func EncodeBytes(alloc memory.Allocator, b []byte) (*String, error) {
	if !utf8.Valid(b) {
		return nil, errors.InvalidUTF8(errors.PhaseEncode, nil, b)
	}
	buf, err := buffer.New(alloc, b)
	if err != nil {
		return nil, err
	}
	return &String{Buffer: buf}, nil
}

// DecodeString copies s back into a Go string.
func DecodeString(s *String) (string, error) {
	if s == nil || s.Buffer == nil {
		return "", errors.NilPointer(errors.PhaseDecode, nil, "*codec.String")
	}
	return Decode(s.Bytes())
}

// Decode validates raw bytes from the foreign side and copies them into a
// Go string.
func Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, b)
	}
	return string(b), nil
}

// Value returns the contents without validation. The bytes were validated
// on construction.
func (s *String) Value() string {
	return string(s.Bytes())
}

// Data is an opaque byte buffer.
type Data struct {
	*buffer.Buffer
}

// EncodeData copies b into bridge storage.
func EncodeData(alloc memory.Allocator, b []byte) (*Data, error) {
	buf, err := buffer.New(alloc, b)
	if err != nil {
		return nil, err
	}
	return &Data{Buffer: buf}, nil
}

package handle

import "testing"

func TestHandleEncoding(t *testing.T) {
	tests := []struct {
		index uint32
		gen   uint32
	}{
		{0, 1},
		{1, 1},
		{41, 7},
		{1 << 20, 1<<32 - 1},
	}

	for _, tt := range tests {
		h := makeHandle(tt.index, tt.gen)
		if h.IsNull() {
			t.Fatalf("makeHandle(%d, %d) produced null", tt.index, tt.gen)
		}
		if h.Index() != tt.index {
			t.Errorf("Index() = %d, want %d", h.Index(), tt.index)
		}
		if h.Generation() != tt.gen {
			t.Errorf("Generation() = %d, want %d", h.Generation(), tt.gen)
		}
	}
}

func TestHandleString(t *testing.T) {
	if got := Null.String(); got != "null" {
		t.Errorf("Null.String() = %q", got)
	}
	if got := makeHandle(3, 2).String(); got != "#3@2" {
		t.Errorf("String() = %q, want #3@2", got)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateLocal:       "local",
		StateTransferred: "transferred",
		StateReleased:    "released",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", s, got, want)
		}
	}
}

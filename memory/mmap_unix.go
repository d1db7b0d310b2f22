//go:build linux || darwin || freebsd

package memory

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/wippyai/objbridge/errors"
)

// Mmap backs each allocation with its own anonymous private mapping. The
// mapping is rounded up to whole pages, so cap(b) is the mapped size.
type Mmap struct {
	pageSize int
}

func NewMmap() *Mmap {
	return &Mmap{pageSize: os.Getpagesize()}
}

func (*Mmap) Name() string { return "mmap" }

func (m *Mmap) Alloc(n int) ([]byte, error) {
	if err := checkSize(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty(), nil
	}

	size := (n + m.pageSize - 1) &^ (m.pageSize - 1)
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseAllocate, n, err)
	}
	return b[:n], nil
}

func (*Mmap) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	if err := unix.Munmap(b[:cap(b)]); err != nil {
		panic(err)
	}
}

// Seal protects the whole mapping against writes.
func (*Mmap) Seal(b []byte) error {
	if cap(b) == 0 {
		return nil
	}
	if err := unix.Mprotect(b[:cap(b)], unix.PROT_READ); err != nil {
		return errors.Wrap(errors.PhaseAllocate, errors.KindAllocation, err, "seal mapping")
	}
	return nil
}

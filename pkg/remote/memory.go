package remote

import (
	"errors"
	"fmt"
	"io"
)

var ErrRemoteRead = errors.New("remote read failed")

// Memory is the byte-read primitive supplied by the host environment. ReadAt
// fills b with bytes located at addr in the remote address space and returns
// how many were read.
type Memory interface {
	ReadAt(b []byte, addr uint64) (int, error)
}

// MemoryFunc adapts a plain (address, length) -> bytes function to Memory.
type MemoryFunc func(addr uint64, length int) ([]byte, error)

func (f MemoryFunc) ReadAt(b []byte, addr uint64) (int, error) {
	buf, err := f(addr, len(b))
	if err != nil {
		return 0, err
	}
	return copy(b, buf), nil
}

// readFull reads exactly len(b) bytes at addr, mapping any failure or short
// read to ErrRemoteRead.
func readFull(mem Memory, b []byte, addr uint64) error {
	n, err := mem.ReadAt(b, addr)
	if err != nil {
		return fmt.Errorf("%w: %d bytes at %#x: %v", ErrRemoteRead, len(b), addr, err)
	}
	if n < len(b) {
		return fmt.Errorf("%w: short read at %#x: got %d, want %d", ErrRemoteRead, addr, n, len(b))
	}
	return nil
}

// tableReader exposes one remote table as an io.ReaderAt whose offset 0 is
// the table's base address. Reads never reach past the table end, so the
// underlying primitive is only asked for addresses the metadata vouches for.
type tableReader struct {
	mem  Memory
	base uint64
	size uint64
}

func (r *tableReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if uint64(off) >= r.size {
		return 0, io.EOF
	}
	if rest := r.size - uint64(off); uint64(len(p)) > rest {
		n, err := r.mem.ReadAt(p[:rest], r.base+uint64(off))
		if err != nil {
			return n, err
		}
		return n, io.EOF
	}
	return r.mem.ReadAt(p, r.base+uint64(off))
}

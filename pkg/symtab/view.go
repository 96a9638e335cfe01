package symtab

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
)

var ErrNameOutOfRange = errors.New("symbol name offset out of string table range")

// View is a read-only descriptor over one library's symbol table and string
// table. It never copies nor owns the underlying bytes; the backing memory
// must outlive the View.
type View struct {
	ImageBase uint64
	Syms      []elf.Sym64
	Strtab    []byte
}

func NewView(imagebase uint64, syms []elf.Sym64, strtab []byte) (*View, error) {
	if len(syms) != 0 && len(strtab) == 0 {
		return nil, fmt.Errorf("non-empty symbol table requires a string table")
	}
	return &View{ImageBase: imagebase, Syms: syms, Strtab: strtab}, nil
}

// Name resolves the name of the i-th symbol entry. An offset past the end of
// the string table, or a string without a NUL terminator, is reported as
// ErrNameOutOfRange instead of being dereferenced.
func (v *View) Name(i int) (string, error) {
	if i < 0 || i >= len(v.Syms) {
		return "", fmt.Errorf("symbol index %d out of range [0, %d)", i, len(v.Syms))
	}
	off := int(v.Syms[i].Name)
	if off >= len(v.Strtab) {
		return "", fmt.Errorf("%w: offset %#x, string table size %d", ErrNameOutOfRange, off, len(v.Strtab))
	}
	end := bytes.IndexByte(v.Strtab[off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %#x", ErrNameOutOfRange, off)
	}
	return string(v.Strtab[off : off+end]), nil
}

package symtab

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Sym64Size is the on-disk size of one ELF64 symbol record.
const Sym64Size = 24

// ParseSym64 decodes a raw little-endian symbol table into entries. The
// input length must be a whole number of records.
func ParseSym64(b []byte) ([]elf.Sym64, error) {
	if len(b)%Sym64Size != 0 {
		return nil, fmt.Errorf("symbol table size %d is not a multiple of %d", len(b), Sym64Size)
	}
	syms := make([]elf.Sym64, len(b)/Sym64Size)
	if len(syms) == 0 {
		return syms, nil
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, syms); err != nil {
		return nil, fmt.Errorf("decode symbol table: %w", err)
	}
	return syms, nil
}

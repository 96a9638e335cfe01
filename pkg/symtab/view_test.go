package symtab

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_View_Name(t *testing.T) {
	strtab := []byte("\x00foo\x00bar\x00")
	syms := []elf.Sym64{
		{Name: 0, Value: 0x0},
		{Name: 1, Value: 0x10},
		{Name: 5, Value: 0x20},
	}
	v, err := NewView(0x1000, syms, strtab)
	require.NoError(t, err)

	name, err := v.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "foo", name)

	name, err = v.Name(2)
	require.NoError(t, err)
	assert.Equal(t, "bar", name)

	name, err = v.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "", name)

	_, err = v.Name(3)
	assert.Error(t, err, "index out of range must be rejected")
	_, err = v.Name(-1)
	assert.Error(t, err)
}

func Test_View_NameOutOfRange(t *testing.T) {
	v, err := NewView(0, []elf.Sym64{{Name: 100}}, []byte("\x00hi\x00"))
	require.NoError(t, err)
	_, err = v.Name(0)
	assert.ErrorIs(t, err, ErrNameOutOfRange)

	// terminator missing
	v, err = NewView(0, []elf.Sym64{{Name: 1}}, []byte("\x00unterminated"))
	require.NoError(t, err)
	_, err = v.Name(0)
	assert.ErrorIs(t, err, ErrNameOutOfRange)
}

func Test_View_Empty(t *testing.T) {
	v, err := NewView(0x1000, nil, nil)
	require.NoError(t, err, "an empty library is a valid no-op")
	assert.Empty(t, v.Syms)

	_, err = NewView(0x1000, []elf.Sym64{{Name: 1}}, nil)
	assert.Error(t, err, "non-empty symtab requires a strtab")
}

func Test_ParseSym64(t *testing.T) {
	raw := make([]byte, Sym64Size*2)
	// entry 1: name offset 5, value 0x1122334455667788, size 0x30
	copy(raw[Sym64Size:], []byte{
		0x05, 0x00, 0x00, 0x00, // name
		0x12,       // info
		0x00,       // other
		0x01, 0x00, // shndx
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11, // value
		0x30, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // size
	})
	syms, err := ParseSym64(raw)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, elf.Sym64{}, syms[0])
	assert.Equal(t, uint32(5), syms[1].Name)
	assert.Equal(t, uint8(0x12), syms[1].Info)
	assert.Equal(t, uint16(1), syms[1].Shndx)
	assert.Equal(t, uint64(0x1122334455667788), syms[1].Value)
	assert.Equal(t, uint64(0x30), syms[1].Size)

	_, err = ParseSym64(raw[:Sym64Size+1])
	assert.Error(t, err, "truncated table must be rejected")

	syms, err = ParseSym64(nil)
	require.NoError(t, err)
	assert.Empty(t, syms)
}

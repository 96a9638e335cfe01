package remote

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemory serves reads that fall entirely inside one of its regions.
type fakeMemory map[uint64][]byte

func (m fakeMemory) ReadAt(b []byte, addr uint64) (int, error) {
	for base, data := range m {
		if addr >= base && addr-base+uint64(len(b)) <= uint64(len(data)) {
			return copy(b, data[addr-base:]), nil
		}
	}
	return 0, fmt.Errorf("unmapped address %#x", addr)
}

func marshalLE(t *testing.T, v any) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
	return buf.Bytes()
}

func Test_ReadMetadata(t *testing.T) {
	testcases := []struct {
		name string
		md   Metadata
		err  error
	}{
		{
			name: "valid",
			md:   Metadata{SymtabAddr: 0x100000, SymtabLen: 3, StrtabAddr: 0x200000, StrtabSize: 32},
		},
		{
			name: "empty library",
			md:   Metadata{},
		},
		{
			name: "entry count beyond bound",
			md:   Metadata{SymtabAddr: 0x100000, SymtabLen: MaxSymtabEntries + 1, StrtabAddr: 0x200000, StrtabSize: 32},
			err:  ErrMalformedMetadata,
		},
		{
			name: "string table beyond bound",
			md:   Metadata{SymtabAddr: 0x100000, SymtabLen: 1, StrtabAddr: 0x200000, StrtabSize: MaxStrtabSize + 1},
			err:  ErrMalformedMetadata,
		},
		{
			name: "entries without string table",
			md:   Metadata{SymtabAddr: 0x100000, SymtabLen: 1},
			err:  ErrMalformedMetadata,
		},
		{
			name: "entries without symtab address",
			md:   Metadata{SymtabLen: 1, StrtabAddr: 0x200000, StrtabSize: 32},
			err:  ErrMalformedMetadata,
		},
	}
	for _, tt := range testcases {
		t.Run(tt.name, func(t *testing.T) {
			mem := fakeMemory{0x9000: marshalLE(t, &tt.md)}
			md, err := ReadMetadata(mem, 0x9000)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			diff := cmp.Diff(&tt.md, md)
			assert.Empty(t, diff, "Diff (-want,+got):\n%s", diff)
		})
	}
}

func Test_ReadMetadata_ReadFailure(t *testing.T) {
	_, err := ReadMetadata(fakeMemory{}, 0x9000)
	assert.ErrorIs(t, err, ErrRemoteRead)

	short := MemoryFunc(func(addr uint64, length int) ([]byte, error) {
		return make([]byte, length/2), nil
	})
	_, err = ReadMetadata(short, 0x9000)
	assert.ErrorIs(t, err, ErrRemoteRead)
}

func Test_LoadMetadata(t *testing.T) {
	strtab := []byte("\x00foo\x00bar\x00")
	syms := []elf.Sym64{
		{Name: 0, Value: 0},
		{Name: 1, Value: 0x10},
		{Name: 5, Value: 0x20},
	}
	md := Metadata{
		SymtabAddr: 0x100000,
		SymtabLen:  uint64(len(syms)),
		StrtabAddr: 0x200000,
		StrtabSize: uint64(len(strtab)),
	}
	mem := fakeMemory{
		0x9000:   marshalLE(t, &md),
		0x100000: marshalLE(t, syms),
		0x200000: strtab,
	}

	view, err := LoadMetadata(mem, 0x1000, 0x9000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), view.ImageBase)

	diff := cmp.Diff(syms, view.Syms)
	assert.Empty(t, diff, "Diff (-want,+got):\n%s", diff)

	var names []string
	for i := range view.Syms {
		name, err := view.Name(i)
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"", "foo", "bar"}, names)
}

func Test_LoadMetadata_EmptyLibrary(t *testing.T) {
	mem := fakeMemory{0x9000: marshalLE(t, &Metadata{})}
	view, err := LoadMetadata(mem, 0x1000, 0x9000)
	require.NoError(t, err)
	assert.Empty(t, view.Syms)
}

func Test_LoadMetadata_TableReadFailure(t *testing.T) {
	md := Metadata{SymtabAddr: 0x100000, SymtabLen: 2, StrtabAddr: 0x200000, StrtabSize: 16}
	mem := fakeMemory{
		0x9000: marshalLE(t, &md),
		// symtab region missing, strtab region present
		0x200000: make([]byte, 16),
	}
	_, err := LoadMetadata(mem, 0, 0x9000)
	assert.ErrorIs(t, err, ErrRemoteRead)
}

func Test_MemoryFunc(t *testing.T) {
	mem := MemoryFunc(func(addr uint64, length int) ([]byte, error) {
		if addr != 0x40 {
			return nil, fmt.Errorf("unexpected address %#x", addr)
		}
		return []byte("abcd"), nil
	})
	buf := make([]byte, 4)
	n, err := mem.ReadAt(buf, 0x40)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(buf))
}

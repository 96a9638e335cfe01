package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/sirupsen/logrus"

	"github.com/psreverse/nidresolver/pkg/logging"
	"github.com/psreverse/nidresolver/pkg/logging/logfields"
	"github.com/psreverse/nidresolver/pkg/symtab"
)

var log = logging.DefaultLogger.WithFields(logrus.Fields{logfields.LogSubsys: "remote"})

var ErrMalformedMetadata = errors.New("malformed library metadata")

const (
	// MetadataSize is the on-disk size of the metadata record.
	MetadataSize = 32

	// MaxSymtabEntries and MaxStrtabSize bound what a fetched record may
	// claim before it is treated as garbage.
	MaxSymtabEntries = 1 << 20
	MaxStrtabSize    = 64 << 20

	readBufSize = 4 * 0x1000
)

// Metadata is the fixed-layout little-endian record published by the target
// runtime to locate one library's symbol and string tables.
type Metadata struct {
	SymtabAddr uint64
	SymtabLen  uint64
	StrtabAddr uint64
	StrtabSize uint64
}

func ReadMetadata(mem Memory, addr uint64) (*Metadata, error) {
	var raw [MetadataSize]byte
	if err := readFull(mem, raw[:], addr); err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	md := &Metadata{
		SymtabAddr: binary.LittleEndian.Uint64(raw[0:8]),
		SymtabLen:  binary.LittleEndian.Uint64(raw[8:16]),
		StrtabAddr: binary.LittleEndian.Uint64(raw[16:24]),
		StrtabSize: binary.LittleEndian.Uint64(raw[24:32]),
	}
	if err := md.validate(); err != nil {
		return nil, err
	}
	return md, nil
}

func (md *Metadata) validate() error {
	if md.SymtabLen > MaxSymtabEntries {
		return fmt.Errorf("%w: %d symbol entries exceeds bound %d", ErrMalformedMetadata, md.SymtabLen, MaxSymtabEntries)
	}
	if md.StrtabSize > MaxStrtabSize {
		return fmt.Errorf("%w: string table size %d exceeds bound %d", ErrMalformedMetadata, md.StrtabSize, MaxStrtabSize)
	}
	if md.SymtabLen != 0 && (md.SymtabAddr == 0 || md.StrtabAddr == 0 || md.StrtabSize == 0) {
		return fmt.Errorf("%w: %d symbol entries but incomplete table locations", ErrMalformedMetadata, md.SymtabLen)
	}
	return nil
}

// LoadMetadata materializes an owned symbol view from a remote metadata
// record: it fetches the record at metaAddr, then private copies of the
// symbol and string tables it describes. Nothing borrowed from the remote
// side survives in the result.
func LoadMetadata(mem Memory, imagebase, metaAddr uint64) (*symtab.View, error) {
	md, err := ReadMetadata(mem, metaAddr)
	if err != nil {
		return nil, err
	}
	if md.SymtabLen == 0 {
		return symtab.NewView(imagebase, nil, nil)
	}

	rawSyms, err := fetchTable(mem, md.SymtabAddr, md.SymtabLen*symtab.Sym64Size)
	if err != nil {
		return nil, fmt.Errorf("fetch symbol table: %w", err)
	}
	syms, err := symtab.ParseSym64(rawSyms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	strtab, err := fetchTable(mem, md.StrtabAddr, md.StrtabSize)
	if err != nil {
		return nil, fmt.Errorf("fetch string table: %w", err)
	}

	log.WithFields(logrus.Fields{
		logfields.ImageBase: fmt.Sprintf("%#x", imagebase),
		logfields.MetaAddr:  fmt.Sprintf("%#x", metaAddr),
	}).Debugf("Fetched %d symbol entries, %d string table bytes", md.SymtabLen, md.StrtabSize)

	return symtab.NewView(imagebase, syms, strtab)
}

func fetchTable(mem Memory, addr, size uint64) ([]byte, error) {
	r := bufra.NewBufReaderAt(&tableReader{mem: mem, base: addr, size: size}, readBufSize)
	buf := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, int64(size)), buf); err != nil {
		return nil, fmt.Errorf("%w: %d bytes at %#x: %v", ErrRemoteRead, size, addr, err)
	}
	return buf, nil
}

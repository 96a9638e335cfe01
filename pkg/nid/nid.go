package nid

import (
	"crypto/sha1"
	"encoding/binary"
)

// Encoder maps a queried symbol name to the form a library's string table
// stores it in. Implementations must be safe for concurrent use.
type Encoder interface {
	Encode(name string) string
}

// Passthrough leaves names untouched, for libraries whose string tables
// carry literal identifiers.
type Passthrough struct{}

func (Passthrough) Encode(name string) string { return name }

// EncodedLength is the length of an encoded short-form name.
const EncodedLength = 11

var alphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+-")

// DefaultSuffix is the digest suffix of the common short-form convention.
var DefaultSuffix = []byte{
	0x51, 0x8d, 0x64, 0xa6, 0x35, 0xde, 0xd8, 0xc1,
	0xe6, 0xb0, 0x39, 0xb1, 0xc3, 0xe5, 0x52, 0x30,
}

// SuffixEncoder implements the hashed short-form convention: the first 8
// bytes of SHA-1(name || suffix) are taken as a little-endian integer and
// spelled as 11 characters of a base64 variant, most significant group
// first.
type SuffixEncoder struct {
	suffix []byte
}

// NewSuffixEncoder creates an encoder with the given digest suffix. A nil or
// empty suffix selects DefaultSuffix.
func NewSuffixEncoder(suffix []byte) *SuffixEncoder {
	if len(suffix) == 0 {
		suffix = DefaultSuffix
	}
	return &SuffixEncoder{suffix: append([]byte(nil), suffix...)}
}

func (e *SuffixEncoder) Encode(name string) string {
	h := sha1.New()
	h.Write([]byte(name))
	h.Write(e.suffix)
	digest := h.Sum(nil)
	v := binary.LittleEndian.Uint64(digest[:8])

	var out [EncodedLength]byte
	for i := EncodedLength - 1; i >= 0; i-- {
		out[i] = alphabet[v&0x3f]
		v >>= 6
	}
	return string(out[:])
}

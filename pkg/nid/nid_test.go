package nid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Passthrough(t *testing.T) {
	assert.Equal(t, "sceKernelOpen", Passthrough{}.Encode("sceKernelOpen"))
	assert.Equal(t, "", Passthrough{}.Encode(""))
}

func Test_SuffixEncoder(t *testing.T) {
	enc := NewSuffixEncoder(nil)

	got := enc.Encode("sceKernelOpen")
	assert.Len(t, got, EncodedLength)
	for _, c := range got {
		assert.True(t, strings.ContainsRune(string(alphabet), c), "character %q outside encoding alphabet", c)
	}

	assert.Equal(t, got, enc.Encode("sceKernelOpen"), "encoding must be deterministic")
	assert.NotEqual(t, got, enc.Encode("sceKernelClose"))
	assert.NotEqual(t, got, enc.Encode("sceKernelOpe"))
}

func Test_SuffixEncoder_CustomSuffix(t *testing.T) {
	def := NewSuffixEncoder(nil)
	custom := NewSuffixEncoder([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.NotEqual(t, def.Encode("module_start"), custom.Encode("module_start"),
		"the suffix is part of the digest input")
	assert.Len(t, custom.Encode("module_start"), EncodedLength)
}

func Test_Registry(t *testing.T) {
	enc, ok := Get("nid")
	require.True(t, ok)
	assert.IsType(t, &SuffixEncoder{}, enc)

	enc, ok = Get("none")
	require.True(t, ok)
	assert.IsType(t, Passthrough{}, enc)

	_, ok = Get("bogus")
	assert.False(t, ok)

	Register("test-upper", encoderFunc(strings.ToUpper))
	t.Cleanup(func() { Register("test-upper", nil) })
	enc, ok = Get("test-upper")
	require.True(t, ok)
	assert.Equal(t, "ABC", enc.Encode("abc"))

	Register("test-upper", nil)
	_, ok = Get("test-upper")
	assert.False(t, ok, "registering nil removes the encoder")
}

type encoderFunc func(string) string

func (f encoderFunc) Encode(name string) string { return f(name) }

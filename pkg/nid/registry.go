package nid

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

var registry = cmap.New[Encoder]()

func init() {
	Register("none", Passthrough{})
	Register("nid", NewSuffixEncoder(nil))
}

// Register makes an encoder available under name, replacing any previous
// registration.
func Register(name string, enc Encoder) {
	if enc == nil {
		registry.Remove(name)
		return
	}
	registry.Set(name, enc)
}

// Get returns the encoder registered under name.
func Get(name string) (Encoder, bool) {
	return registry.Get(name)
}

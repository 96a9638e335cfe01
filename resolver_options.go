package nidresolver

import (
	"github.com/ianlancetaylor/demangle"

	"github.com/psreverse/nidresolver/pkg/nid"
	"github.com/psreverse/nidresolver/pkg/remote"
)

type DemangleType string

const (
	DemangleNone       DemangleType = "NONE"
	DemangleSimplified DemangleType = "SIMPLIFIED"
	DemangleTemplates  DemangleType = "TEMPLATES"
	DemangleFull       DemangleType = "FULL"
)

func (dt DemangleType) ToOptions() []demangle.Option {
	switch dt {
	case DemangleNone:
		return nil
	case DemangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams, demangle.NoTemplateParams}
	case DemangleTemplates:
		return []demangle.Option{demangle.NoParams, demangle.NoEnclosingParams}
	default:
		return []demangle.Option{demangle.NoClones}
	}
}

type resolverOptions struct {
	mem          remote.Memory
	encoder      nid.Encoder
	demangleType DemangleType
	cacheSize    int
}

type Option func(*resolverOptions)

// WithRemoteMemory injects the read primitive used by AddLibraryMetadata.
func WithRemoteMemory(mem remote.Memory) Option {
	return func(ro *resolverOptions) {
		ro.mem = mem
	}
}

// WithEncoder sets the name encoding applied to lookup queries before they
// are matched against indexed names.
func WithEncoder(enc nid.Encoder) Option {
	return func(ro *resolverOptions) {
		if enc != nil {
			ro.encoder = enc
		}
	}
}

// WithDemangleType controls how ResolveAddr presents mangled names.
func WithDemangleType(dt DemangleType) Option {
	return func(ro *resolverOptions) {
		ro.demangleType = dt
	}
}

// WithLookupCacheSize enables an LRU cache over resolved lookups.
func WithLookupCacheSize(size int) Option {
	return func(ro *resolverOptions) {
		if size > 0 {
			ro.cacheSize = size
		}
	}
}

func defaultResolverOpts() resolverOptions {
	return resolverOptions{
		encoder:      nid.Passthrough{},
		demangleType: DemangleNone,
	}
}

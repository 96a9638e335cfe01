package nidresolver

import (
	"debug/elf"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/psreverse/nidresolver/pkg/logging"
	"github.com/psreverse/nidresolver/pkg/logging/logfields"
	"github.com/psreverse/nidresolver/pkg/remote"
	"github.com/psreverse/nidresolver/pkg/symtab"
)

var log = logging.DefaultLogger.WithFields(logrus.Fields{logfields.LogSubsys: "resolver"})

// MaxLibraries bounds a single reservation.
const MaxLibraries = 1 << 20

type library struct {
	index *symtab.Index
	// owned marks metadata-sourced libraries whose table copies belong to
	// the resolver; borrowed libraries keep caller-owned backing slices.
	owned bool
}

// Resolver maps symbol names to virtual addresses across a fixed-capacity,
// registration-ordered set of libraries.
//
// Mutation (Reserve, AddLibrary, AddLibraryMetadata, MoveFrom, Close) must
// be serialized by the caller and must not overlap lookups. Once mutation is
// complete, a Resolver may be shared freely between concurrent readers.
type Resolver struct {
	libs     []library
	reserved bool
	opts     resolverOptions
	cache    *lru.Cache[string, uint64]
}

// NewResolver creates an empty Resolver. It never fails; capacity must be
// reserved before libraries can be added.
func NewResolver(opts ...Option) *Resolver {
	this := &Resolver{opts: defaultResolverOpts()}
	for _, opt := range opts {
		opt(&this.opts)
	}
	if this.opts.cacheSize > 0 {
		this.cache, _ = lru.New[string, uint64](this.opts.cacheSize)
	}
	return this
}

// Reserve allocates backing storage for exactly n libraries. The reservation
// is one-shot: a second call fails with ErrAlreadyReserved no matter the
// size, and the capacity never grows afterwards.
func (r *Resolver) Reserve(n int) error {
	if r.reserved {
		return ErrAlreadyReserved
	}
	if n < 0 || n > MaxLibraries {
		return fmt.Errorf("%w: %d libraries", ErrCapacity, n)
	}
	r.libs = make([]library, 0, n)
	r.reserved = true
	return nil
}

// AddLibrary registers a library from borrowed tables. The symtab and strtab
// slices are referenced, never copied: they must stay alive and unchanged
// for as long as this Resolver (or any Resolver it is moved into) is in use.
// The library is visible to lookups as soon as AddLibrary returns.
func (r *Resolver) AddLibrary(imagebase uint64, syms []elf.Sym64, strtab []byte) error {
	if err := r.checkCapacity(); err != nil {
		return err
	}
	if len(syms) != 0 && strtab == nil {
		return fmt.Errorf("%w: non-empty symtab with nil strtab", ErrInvalidArgument)
	}
	view, err := symtab.NewView(imagebase, syms, strtab)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return r.addView(view, false)
}

// AddLibraryMetadata registers a library located by a remote metadata
// record. The symbol and string tables are fetched into resolver-owned
// copies through the Memory injected with WithRemoteMemory. On any failure
// the Resolver is unchanged; a transient ErrRemoteRead may be retried.
func (r *Resolver) AddLibraryMetadata(imagebase, metaAddr uint64) error {
	if err := r.checkCapacity(); err != nil {
		return err
	}
	if r.opts.mem == nil {
		return fmt.Errorf("%w: no remote memory configured", ErrInvalidArgument)
	}
	view, err := remote.LoadMetadata(r.opts.mem, imagebase, metaAddr)
	if err != nil {
		return err
	}
	return r.addView(view, true)
}

func (r *Resolver) checkCapacity() error {
	if !r.reserved {
		return ErrNotReserved
	}
	if len(r.libs) == cap(r.libs) {
		return ErrCapacityExceeded
	}
	return nil
}

func (r *Resolver) addView(view *symtab.View, owned bool) error {
	idx, err := symtab.NewIndex(view, &symtab.Options{DemangleOpts: r.opts.demangleType.ToOptions()})
	if err != nil {
		if errors.Is(err, symtab.ErrNameOutOfRange) || errors.Is(err, symtab.ErrAddrOverflow) {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return err
	}
	r.libs = append(r.libs, library{index: idx, owned: owned})
	if r.cache != nil {
		r.cache.Purge()
	}
	log.WithFields(logrus.Fields{
		logfields.ImageBase: fmt.Sprintf("%#x", view.ImageBase),
	}).Debugf("Registered library (%d symbols)", idx.Size())
	return nil
}

// LookupSymbol returns the virtual address of name, or 0 when no registered
// library defines it. Libraries are consulted in registration order and the
// first match wins. If a library is mapped at image base 0 the sentinel is
// ambiguous; use Lookup there.
func (r *Resolver) LookupSymbol(name string) uint64 {
	addr, _ := r.Lookup(name)
	return addr
}

// Lookup is LookupSymbol with an explicit found result.
func (r *Resolver) Lookup(name string) (uint64, bool) {
	query := r.opts.encoder.Encode(name)
	if r.cache != nil {
		if addr, ok := r.cache.Get(query); ok {
			return addr, true
		}
	}
	for i := range r.libs {
		if addr, ok := r.libs[i].index.Lookup(query); ok {
			if r.cache != nil {
				r.cache.Add(query, addr)
			}
			return addr, true
		}
	}
	return 0, false
}

// ResolveAddr returns the name of the closest symbol at or below addr,
// consulting libraries in registration order, or "" when none covers it.
func (r *Resolver) ResolveAddr(addr uint64) string {
	for i := range r.libs {
		if name := r.libs[i].index.ResolveAddr(addr); name != "" {
			return name
		}
	}
	return ""
}

// Used reports the number of registered libraries.
func (r *Resolver) Used() int { return len(r.libs) }

// Reserved reports the reserved library capacity.
func (r *Resolver) Reserved() int {
	if !r.reserved {
		return 0
	}
	return cap(r.libs)
}

// MoveFrom transfers ownership of src's reserved storage, registered
// libraries and lookup cache into r, releasing whatever r held before. The
// query encoding and demangle settings move along with the indices they
// shaped, so r answers every lookup src would have answered. src is left
// unreserved and empty: it keeps its remote memory, answers no lookups, and
// is safe to Close or reserve again. Resolvers are never copied; this is
// the only way to hand one off.
func (r *Resolver) MoveFrom(src *Resolver) {
	if src == nil || src == r {
		return
	}
	r.libs = src.libs
	r.reserved = src.reserved
	r.cache = src.cache
	r.opts.encoder = src.opts.encoder
	r.opts.demangleType = src.opts.demangleType
	src.libs = nil
	src.reserved = false
	src.cache = nil
}

// Close releases the reserved storage and any privately fetched table
// copies. Borrowed slices passed to AddLibrary are left untouched. Close is
// idempotent and a no-op on a moved-from Resolver.
func (r *Resolver) Close() {
	var owned int
	for i := range r.libs {
		if r.libs[i].owned {
			owned++
		}
		r.libs[i].index = nil
	}
	if len(r.libs) != 0 {
		log.Debugf("Released %d libraries (%d with owned table copies)", len(r.libs), owned)
	}
	r.libs = nil
	r.reserved = false
	if r.cache != nil {
		r.cache.Purge()
		r.cache = nil
	}
}

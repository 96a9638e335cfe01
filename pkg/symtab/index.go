package symtab

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ianlancetaylor/demangle"
)

var ErrAddrOverflow = errors.New("symbol value overflows image base")

type Options struct {
	DemangleOpts []demangle.Option
}

type entry struct {
	addr uint64
	name string
}

// Index is a per-library lookup structure, built exactly once from a View.
// It maps names to resolved addresses (image base + value) and keeps a
// value-sorted table for reverse resolution. An Index performs no I/O and is
// safe for concurrent readers.
type Index struct {
	imagebase    uint64
	byName       map[string]uint64
	byAddr       []entry
	demangleOpts []demangle.Option
}

func NewIndex(v *View, opts *Options) (*Index, error) {
	if opts == nil {
		opts = &Options{}
	}
	this := &Index{
		imagebase:    v.ImageBase,
		byName:       make(map[string]uint64, len(v.Syms)),
		demangleOpts: opts.DemangleOpts,
	}
	for i := range v.Syms {
		name, err := v.Name(i)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		if name == "" {
			// the null entry and unnamed section symbols
			continue
		}
		value := v.Syms[i].Value
		if value > math.MaxUint64-v.ImageBase {
			return nil, fmt.Errorf("%w: imagebase %#x, value %#x", ErrAddrOverflow, v.ImageBase, value)
		}
		addr := v.ImageBase + value
		// First occurrence in table order wins; later duplicates stay
		// reachable through ResolveAddr only.
		if _, ok := this.byName[name]; !ok {
			this.byName[name] = addr
		}
		this.byAddr = append(this.byAddr, entry{addr: addr, name: name})
	}
	sort.SliceStable(this.byAddr, func(i, j int) bool { return this.byAddr[i].addr < this.byAddr[j].addr })
	return this, nil
}

func (idx *Index) Lookup(name string) (uint64, bool) {
	addr, ok := idx.byName[name]
	return addr, ok
}

// ResolveAddr returns the name of the closest symbol at or below addr, or ""
// when addr precedes every symbol in this library.
func (idx *Index) ResolveAddr(addr uint64) string {
	if len(idx.byAddr) == 0 || addr < idx.byAddr[0].addr {
		return ""
	}
	i := sort.Search(len(idx.byAddr), func(i int) bool { return addr < idx.byAddr[i].addr })
	i--
	name := idx.byAddr[i].name
	if len(idx.demangleOpts) != 0 {
		name = demangle.Filter(name, idx.demangleOpts...)
	}
	return name
}

func (idx *Index) ImageBase() uint64 { return idx.imagebase }

func (idx *Index) Size() int { return len(idx.byAddr) }

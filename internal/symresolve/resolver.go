// Package symresolve provides a reference SegmentResolver: an
// in-memory segment registry good enough for tests, without pulling
// in an external symbol-table format.
package symresolve

import (
	"sort"
	"sync"

	"github.com/cclauss/memray/pkg/recordstream"
)

// mapping is one loaded segment's address range, resolved back to the
// binary that owns it.
type mapping struct {
	filename string
	start    uint64
	end      uint64
}

// generationSnapshot is the segment table as it stood immediately
// after a given ClearSegments/AddSegments sequence — the past
// snapshots are kept so that WalkNativeStack can resolve an IP
// against the map that was actually in force when the allocation
// carrying it was recorded, not whatever map is current now.
type generationSnapshot struct {
	mappings []mapping // sorted by start.
}

// InMemoryResolver is a reference recordstream.SegmentResolver: it
// tracks, per generation, which binary owned which address range, and
// resolves an instruction pointer to a (binary, offset) pair. It does
// not read any symbol table, so resolved frames carry only the owning
// binary name and offset, not a function name or source line.
//
// Grounded on pkg/og/storage/dict/dict.go for the
// mutex-guarded append-only registry shape, and on
// pkg/phlaredb/symdb/resolver_tree_test.go for treating generations as
// immutable snapshots addressed by index.
type InMemoryResolver struct {
	mu          sync.Mutex
	generations []generationSnapshot
	current     generationSnapshot
}

// New returns a resolver starting at generation 0 with no segments.
func New() *InMemoryResolver {
	r := &InMemoryResolver{}
	r.generations = append(r.generations, generationSnapshot{})
	return r
}

// ClearSegments starts a new, empty generation. The prior generation's
// snapshot is retained so in-flight native-stack resolutions keyed to
// it keep working.
func (r *InMemoryResolver) ClearSegments() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = generationSnapshot{}
	r.generations = append(r.generations, r.current)
}

// AddSegments records filename's segments, each offset by addr, into
// the current generation.
func (r *InMemoryResolver) AddSegments(filename string, addr uint64, segments []recordstream.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.generations) - 1
	snap := r.generations[idx]
	for _, seg := range segments {
		start := addr + seg.VAddr
		snap.mappings = append(snap.mappings, mapping{
			filename: filename,
			start:    start,
			end:      start + seg.MemSz,
		})
	}
	sort.Slice(snap.mappings, func(i, j int) bool { return snap.mappings[i].start < snap.mappings[j].start })
	r.generations[idx] = snap
	r.current = snap
}

// CurrentSegmentGeneration returns the number of ClearSegments calls
// made so far, which is the 1-based index of the most recent one. It
// is 0 (the empty, pre-MEMORY_MAP_START generation) until the first
// ClearSegments call.
func (r *InMemoryResolver) CurrentSegmentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(len(r.generations) - 1)
}

// Resolve looks up ip against the segment map recorded at generation.
// An ip outside every known range, or a generation index out of
// bounds, resolves to nothing — not an error, per
// recordstream.SegmentResolver's contract.
func (r *InMemoryResolver) Resolve(ip uint64, generation uint64) []recordstream.ResolvedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if generation >= uint64(len(r.generations)) {
		return nil
	}
	mappings := r.generations[generation].mappings
	i := sort.Search(len(mappings), func(i int) bool { return mappings[i].start > ip })
	if i == 0 {
		return nil
	}
	m := mappings[i-1]
	if ip < m.start || ip >= m.end {
		return nil
	}
	return []recordstream.ResolvedFrame{{
		FunctionName: "",
		Filename:     m.filename,
		Lineno:       int32(ip - m.start),
	}}
}

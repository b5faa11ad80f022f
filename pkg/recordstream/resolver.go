package recordstream

// Segment describes one mapped region within a loaded binary, as
// carried by a SEGMENT record nested inside a SEGMENT_HEADER group.
type Segment struct {
	VAddr uint64
	MemSz uint64
}

// ResolvedFrame is a symbolized native frame, as produced by a
// SegmentResolver for a given instruction pointer.
type ResolvedFrame struct {
	FunctionName string
	Filename     string
	Lineno       int32
}

// SegmentResolver is the symbol-resolution collaborator: out of scope
// for this package to implement for real (see internal/symresolve for
// a reference implementation), but the segment-registry bridge
// and the native-stack query both depend on its shape.
//
// Grounded on the collaborator-interface
// shape of pkg/experiment/symbolizer/types.go.
type SegmentResolver interface {
	// ClearSegments drops all known segments and bumps the generation.
	ClearSegments()
	// AddSegments records a SEGMENT_HEADER group's segments, based at
	// addr, under filename.
	AddSegments(filename string, addr uint64, segments []Segment)
	// Resolve returns the symbolized frames for ip as it existed
	// under the segment map in force at generation. An empty result
	// (not an error) means the IP could not be resolved.
	Resolve(ip uint64, generation uint64) []ResolvedFrame
	// CurrentSegmentGeneration returns the generation bumped by the
	// most recent ClearSegments call.
	CurrentSegmentGeneration() uint64
}

// nullResolver is the default SegmentResolver used when a RecordReader is
// constructed without one: it tracks the generation counter correctly
// (so the monotonicity invariant still holds) but never resolves
// anything. Callers that need real native-frame symbolization supply
// their own resolver, e.g. internal/symresolve.InMemoryResolver.
type nullResolver struct {
	generation uint64
}

func (r *nullResolver) ClearSegments()   { r.generation++ }
func (r *nullResolver) AddSegments(string, uint64, []Segment) {}
func (r *nullResolver) Resolve(uint64, uint64) []ResolvedFrame { return nil }
func (r *nullResolver) CurrentSegmentGeneration() uint64       { return r.generation }

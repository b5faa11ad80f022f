package symresolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cclauss/memray/pkg/recordstream"
)

func Test_InMemoryResolver_ResolveWithinSegment(t *testing.T) {
	r := New()
	r.ClearSegments()
	r.AddSegments("/usr/bin/app", 0x400000, []recordstream.Segment{{VAddr: 0x1000, MemSz: 0x2000}})
	gen := r.CurrentSegmentGeneration()

	resolved := r.Resolve(0x401800, gen)
	require.Len(t, resolved, 1)
	assert.Equal(t, "/usr/bin/app", resolved[0].Filename)
	assert.Equal(t, int32(0x800), resolved[0].Lineno)
}

func Test_InMemoryResolver_ResolveOutsideAnySegment(t *testing.T) {
	r := New()
	r.ClearSegments()
	r.AddSegments("/usr/bin/app", 0x400000, []recordstream.Segment{{VAddr: 0x1000, MemSz: 0x100}})
	gen := r.CurrentSegmentGeneration()

	assert.Empty(t, r.Resolve(0x500000, gen))
}

func Test_InMemoryResolver_OlderGenerationStaysResolvable(t *testing.T) {
	r := New()
	r.ClearSegments()
	r.AddSegments("/usr/bin/app", 0x400000, []recordstream.Segment{{VAddr: 0x1000, MemSz: 0x2000}})
	gen1 := r.CurrentSegmentGeneration()

	r.ClearSegments()
	r.AddSegments("/usr/bin/other", 0x700000, []recordstream.Segment{{VAddr: 0, MemSz: 0x1000}})
	gen2 := r.CurrentSegmentGeneration()

	require.NotEqual(t, gen1, gen2)
	resolvedOld := r.Resolve(0x401000, gen1)
	require.Len(t, resolvedOld, 1)
	assert.Equal(t, "/usr/bin/app", resolvedOld[0].Filename)
}

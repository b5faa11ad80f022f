package recordstream

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// frameTreeRoot is the sentinel index denoting "no frame" / the root
// of the trie. It is never stored as an entry.
const frameTreeRoot uint64 = 0

type frameTreeNode struct {
	parent  uint64
	frameID uint64
}

// frameTree deduplicates every observed call-stack prefix into an
// index-keyed trie: a stack of depth d becomes a single index.
//
// Grounded on pkg/phlaredb/symdb/stacktrace_tree.go's stacktraceTree,
// adapted from its depth-first child/sibling arena into a hash-keyed
// lookup shape: get_trace_index must return the same index for a
// repeated (parent, frameID) pair regardless of which thread or
// insertion order produced it, which a hash lookup answers directly.
// Collisions are resolved by verifying the candidate nodes, the same
// way pyroscope's dict package treats its hash as an index into a
// bucket rather than as ground truth.
//
// Callers are responsible for serializing access; RecordReader does so
// with its coarse mutex.
type frameTree struct {
	nodes   []frameTreeNode // index 0 is the unused root sentinel.
	buckets map[uint64][]uint64
}

func newFrameTree() *frameTree {
	return &frameTree{
		nodes:   make([]frameTreeNode, 1, 1024),
		buckets: make(map[uint64][]uint64, 1024),
	}
}

func frameTreeHash(parent, frameID uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], parent)
	binary.LittleEndian.PutUint64(buf[8:16], frameID)
	return xxhash.Sum64(buf[:])
}

// getTraceIndex returns the existing child index for (parent, frameID)
// if that pair was seen before, otherwise creates and returns a new
// node. The returned index is always > parent.
func (t *frameTree) getTraceIndex(parent, frameID uint64) uint64 {
	h := frameTreeHash(parent, frameID)
	for _, idx := range t.buckets[h] {
		n := t.nodes[idx]
		if n.parent == parent && n.frameID == frameID {
			return idx
		}
	}
	idx := uint64(len(t.nodes))
	t.nodes = append(t.nodes, frameTreeNode{parent: parent, frameID: frameID})
	t.buckets[h] = append(t.buckets[h], idx)
	return idx
}

// nextNode is the inverse walk: given a non-root index, it returns
// the frame id stored there and the parent index to continue from.
func (t *frameTree) nextNode(index uint64) (frameID uint64, parent uint64, ok bool) {
	if index == frameTreeRoot || index >= uint64(len(t.nodes)) {
		return 0, 0, false
	}
	n := t.nodes[index]
	return n.frameID, n.parent, true
}

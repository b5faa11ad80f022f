package recordstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_frameTree_getTraceIndex_deduplicatesRepeatedPrefixes(t *testing.T) {
	tree := newFrameTree()
	a := tree.getTraceIndex(frameTreeRoot, 10)
	b := tree.getTraceIndex(a, 20)
	aAgain := tree.getTraceIndex(frameTreeRoot, 10)
	bAgain := tree.getTraceIndex(aAgain, 20)
	assert.Equal(t, a, aAgain)
	assert.Equal(t, b, bAgain)
}

func Test_frameTree_getTraceIndex_distinctPrefixesGetDistinctIndices(t *testing.T) {
	tree := newFrameTree()
	a := tree.getTraceIndex(frameTreeRoot, 10)
	c := tree.getTraceIndex(frameTreeRoot, 11)
	assert.NotEqual(t, a, c)
}

func Test_frameTree_getTraceIndex_isMonotonic(t *testing.T) {
	tree := newFrameTree()
	var last uint64
	for i := uint64(0); i < 100; i++ {
		idx := tree.getTraceIndex(last, i)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func Test_frameTree_nextNode_walksBackToRoot(t *testing.T) {
	tree := newFrameTree()
	a := tree.getTraceIndex(frameTreeRoot, 10)
	b := tree.getTraceIndex(a, 20)

	frameID, parent, ok := tree.nextNode(b)
	require.True(t, ok)
	assert.Equal(t, uint64(20), frameID)
	assert.Equal(t, a, parent)

	frameID, parent, ok = tree.nextNode(parent)
	require.True(t, ok)
	assert.Equal(t, uint64(10), frameID)
	assert.Equal(t, frameTreeRoot, parent)
}

func Test_frameTree_nextNode_rootIsNotWalkable(t *testing.T) {
	tree := newFrameTree()
	_, _, ok := tree.nextNode(frameTreeRoot)
	assert.False(t, ok)
}

package recordstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_frameDict_insertFrame_rejectsDuplicates(t *testing.T) {
	d := newFrameDict()
	require.NoError(t, d.insertFrame(1, FrameDescriptor{FunctionName: "f"}))
	err := d.insertFrame(1, FrameDescriptor{FunctionName: "g"})
	require.ErrorIs(t, err, ErrDuplicateFrameID)
}

func Test_frameDict_lookupFrame(t *testing.T) {
	d := newFrameDict()
	desc := FrameDescriptor{FunctionName: "f", Filename: "a.py", Lineno: 5}
	require.NoError(t, d.insertFrame(1, desc))

	got, ok := d.lookupFrame(1)
	require.True(t, ok)
	assert.Equal(t, desc, got)

	_, ok = d.lookupFrame(2)
	assert.False(t, ok)
}

func Test_frameDict_appendNativeFrame_isOneIndexed(t *testing.T) {
	d := newFrameDict()
	idx1 := d.appendNativeFrame(0x1000, 0)
	idx2 := d.appendNativeFrame(0x2000, idx1)
	assert.Equal(t, uint64(1), idx1)
	assert.Equal(t, uint64(2), idx2)
	assert.Equal(t, uint64(2), d.nativeFrameLen())

	frame, ok := d.nativeFrameAt(idx2)
	require.True(t, ok)
	assert.Equal(t, uint64(0x2000), frame.ip)
	assert.Equal(t, idx1, frame.parentIndex)

	_, ok = d.nativeFrameAt(0)
	assert.False(t, ok)
	_, ok = d.nativeFrameAt(3)
	assert.False(t, ok)
}

package recordstream_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cclauss/memray/pkg/recordstream"
	"github.com/cclauss/memray/pkg/recordstream/streamtest"
)

func Test_DumpRecords_writesHeaderAndEveryRecordType(t *testing.T) {
	b := streamtest.New("python app.py", 42, false, recordstream.AllocatorMalloc)
	b.ContextSwitch(1)
	b.Allocation(0xabc, 16, recordstream.AllocatorFnMalloc)
	b.AllocationWithNative(0xdef, 32, 7, recordstream.AllocatorFnMmap)
	b.FramePush(5)
	b.FramePop(1)
	b.FrameIndex(5, "do_work", "app.py", 12)
	b.NativeTraceIndex(0x7f00, 0)
	b.MemoryMapStart()
	b.SegmentHeader("libc.so", 0x1000, []recordstream.Segment{{VAddr: 0x1000, MemSz: 0x200}})
	b.ThreadRecord("worker-1")
	b.MemoryRecord(1000, 2048)

	src := recordstream.NewReaderSource(bytes.NewReader(b.Bytes()))
	var out bytes.Buffer
	err := recordstream.DumpRecords(context.Background(), &out, src)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, `command_line="python app.py"`)
	// AllocatorMalloc reproduces the original "pymalloc" mislabel.
	assert.Contains(t, text, "python_allocator=pymalloc")
	assert.Contains(t, text, "CONTEXT_SWITCH tid=1")
	assert.Contains(t, text, "ALLOCATION address=0xabc size=16 allocator=malloc")
	assert.Contains(t, text, "ALLOCATION_WITH_NATIVE address=0xdef size=32 allocator=mmap native_frame_id=7")
	assert.Contains(t, text, "FRAME_PUSH frame_id=5")
	assert.Contains(t, text, "FRAME_POP count=1")
	assert.Contains(t, text, "FRAME_ID frame_id=5 function_name=do_work filename=app.py lineno=12")
	assert.Contains(t, text, "NATIVE_FRAME_ID ip=0x7f00 index=0")
	assert.Contains(t, text, "MEMORY_MAP_START")
	assert.Contains(t, text, "SEGMENT_HEADER filename=libc.so num_segments=1 addr=0x1000")
	assert.Contains(t, text, "SEGMENT 0x1000 0x200")
	assert.Contains(t, text, "THREAD worker-1")
	assert.Contains(t, text, "MEMORY_RECORD time=1000 memory=0x800")
}

func Test_DumpRecords_doesNotMutateSharedState(t *testing.T) {
	// A duplicate FRAME_INDEX for the same frame ID would fail
	// RecordReader's mutating handler (ErrDuplicateFrameID), but the
	// read-only dump never calls that handler, so it must succeed.
	b := streamtest.New("app", 1, false, recordstream.AllocatorPyMalloc)
	b.FrameIndex(5, "f", "a.c", 1)
	b.FrameIndex(5, "f2", "a.c", 2)

	src := recordstream.NewReaderSource(bytes.NewReader(b.Bytes()))
	var out bytes.Buffer
	err := recordstream.DumpRecords(context.Background(), &out, src)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "function_name=f2")
}

func Test_DumpRecords_stopsOnCancelledContext(t *testing.T) {
	b := streamtest.New("app", 1, false, recordstream.AllocatorPyMalloc)
	b.ContextSwitch(1)
	b.Allocation(0x1, 1, recordstream.AllocatorFnMalloc)

	src := recordstream.NewReaderSource(bytes.NewReader(b.Bytes()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := recordstream.DumpRecords(ctx, &out, src)
	require.Error(t, err)
}

func Test_DumpRecords_errorOnMalformedBody(t *testing.T) {
	b := streamtest.New("app", 1, false, recordstream.AllocatorPyMalloc)
	b.FrameIndex(5, "f", "a.c", 1)
	b.Raw(byte(recordstream.RecordFramePush)) // tag with no body bytes following.

	src := recordstream.NewReaderSource(bytes.NewReader(b.Bytes()))
	var out bytes.Buffer
	err := recordstream.DumpRecords(context.Background(), &out, src)
	require.Error(t, err)
}

func Test_DumpRecords_errorOnUnknownRecordType(t *testing.T) {
	b := streamtest.New("app", 1, false, recordstream.AllocatorPyMalloc)
	b.Raw(0x0f) // type nibble 15: not one of the known record types.

	src := recordstream.NewReaderSource(bytes.NewReader(b.Bytes()))
	var out bytes.Buffer
	err := recordstream.DumpRecords(context.Background(), &out, src)
	require.Error(t, err)
	assert.Contains(t, out.String(), "UNKNOWN RECORD TYPE")
}

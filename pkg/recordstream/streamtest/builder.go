// Package streamtest builds well-formed (and deliberately malformed)
// record stream byte slices for tests, mirroring the shape of a
// capture file without going through a real producer.
package streamtest

import (
	"encoding/binary"

	"github.com/cclauss/memray/pkg/recordstream"
)

// Builder accumulates bytes for a single stream. The zero value is
// not usable; use New.
type Builder struct {
	buf []byte
}

// New starts a builder with the header pre-populated: magic, current
// version, native_traces, a zeroed stats block, commandLine, pid, and
// pythonAllocator.
func New(commandLine string, pid int32, nativeTraces bool, pythonAllocator recordstream.AllocatorKind) *Builder {
	b := &Builder{}
	b.buf = append(b.buf, recordstream.Magic[:]...)
	b.uint32(recordstream.CurrentVersion)
	if nativeTraces {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	b.buf = append(b.buf, make([]byte, 32)...) // zeroed TrackerStats.
	b.cstring(commandLine)
	b.int32(pid)
	b.buf = append(b.buf, byte(pythonAllocator))
	return b
}

// Bytes returns the accumulated stream.
func (b *Builder) Bytes() []byte { return b.buf }

// Raw appends arbitrary bytes verbatim, for constructing deliberately
// malformed fixtures.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *Builder) uint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.buf = append(b.buf, buf[:]...)
}

func (b *Builder) int32(v int32) { b.uint32(uint32(v)) }

func (b *Builder) uint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.buf = append(b.buf, buf[:]...)
}

func (b *Builder) int64(v int64) { b.uint64(uint64(v)) }

func (b *Builder) cstring(s string) {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
}

func (b *Builder) varint(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	b.buf = append(b.buf, tmp[:n]...)
}

func (b *Builder) tag(t recordstream.RecordType, flags uint8) {
	b.buf = append(b.buf, byte(t)|flags<<4)
}

// Allocation appends an ALLOCATION record.
func (b *Builder) Allocation(address, size uint64, allocator recordstream.Allocator) *Builder {
	b.tag(recordstream.RecordAllocation, uint8(allocator))
	b.uint64(address)
	b.varint(size)
	return b
}

// AllocationWithNative appends an ALLOCATION_WITH_NATIVE record.
func (b *Builder) AllocationWithNative(address, size, nativeFrameID uint64, allocator recordstream.Allocator) *Builder {
	b.tag(recordstream.RecordAllocationWithNative, uint8(allocator))
	b.uint64(address)
	b.varint(size)
	b.varint(nativeFrameID)
	return b
}

// FramePush appends a FRAME_PUSH record.
func (b *Builder) FramePush(frameID uint64) *Builder {
	b.tag(recordstream.RecordFramePush, 0)
	b.uint64(frameID)
	return b
}

// FramePop appends a FRAME_POP record.
func (b *Builder) FramePop(count uint8) *Builder {
	b.tag(recordstream.RecordFramePop, 0)
	b.buf = append(b.buf, count)
	return b
}

// FrameIndex appends a FRAME_INDEX record.
func (b *Builder) FrameIndex(frameID uint64, function, filename string, lineno int32) *Builder {
	b.tag(recordstream.RecordFrameIndex, 0)
	b.uint64(frameID)
	b.cstring(function)
	b.cstring(filename)
	b.int32(lineno)
	return b
}

// NativeTraceIndex appends a NATIVE_TRACE_INDEX record.
func (b *Builder) NativeTraceIndex(ip, parentIndex uint64) *Builder {
	b.tag(recordstream.RecordNativeTraceIndex, 0)
	b.uint64(ip)
	b.varint(parentIndex)
	return b
}

// MemoryMapStart appends a MEMORY_MAP_START record.
func (b *Builder) MemoryMapStart() *Builder {
	b.tag(recordstream.RecordMemoryMapStart, 0)
	return b
}

// SegmentHeader appends a SEGMENT_HEADER record followed by its
// nested SEGMENT records.
func (b *Builder) SegmentHeader(filename string, baseAddr uint64, segments []recordstream.Segment) *Builder {
	return b.SegmentHeaderDeclaring(filename, baseAddr, uint64(len(segments)), segments)
}

// SegmentHeaderDeclaring is SegmentHeader with the num_segments field
// set independently of len(segments), for building fixtures where the
// declared count and the actual nested records disagree.
func (b *Builder) SegmentHeaderDeclaring(filename string, baseAddr uint64, declaredNumSegments uint64, segments []recordstream.Segment) *Builder {
	b.tag(recordstream.RecordSegmentHeader, 0)
	b.cstring(filename)
	b.uint64(declaredNumSegments)
	b.uint64(baseAddr)
	for _, seg := range segments {
		b.tag(recordstream.RecordSegment, 0)
		b.uint64(seg.VAddr)
		b.uint64(seg.MemSz)
	}
	return b
}

// ThreadRecord appends a THREAD_RECORD record.
func (b *Builder) ThreadRecord(name string) *Builder {
	b.tag(recordstream.RecordThreadRecord, 0)
	b.cstring(name)
	return b
}

// MemoryRecord appends a MEMORY_RECORD record.
func (b *Builder) MemoryRecord(msSinceEpoch int64, rss uint64) *Builder {
	b.tag(recordstream.RecordMemoryRecord, 0)
	b.int64(msSinceEpoch)
	b.uint64(rss)
	return b
}

// ContextSwitch appends a CONTEXT_SWITCH record.
func (b *Builder) ContextSwitch(tid uint64) *Builder {
	b.tag(recordstream.RecordContextSwitch, 0)
	b.uint64(tid)
	return b
}

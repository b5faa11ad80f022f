// Package recordstream decodes the binary record stream produced by an
// instrumented profiling target: a header followed by a sequence of
// typed, variable-length records describing allocations, call-stack
// motion, thread activity, loaded segments and periodic memory samples.
package recordstream

import "fmt"

// Magic is the fixed tag every stream must begin with.
var Magic = [4]byte{'R', 'S', 'T', '1'}

// CurrentVersion is the only format version this reader understands.
const CurrentVersion uint32 = 1

// AllocatorKind identifies the host memory allocator in force when the
// stream was captured. It is carried once, in the header.
type AllocatorKind uint8

const (
	AllocatorPyMalloc AllocatorKind = iota
	AllocatorPyMallocDebug
	AllocatorMalloc
	AllocatorOther
)

func (k AllocatorKind) String() string {
	switch k {
	case AllocatorPyMalloc:
		return "pymalloc"
	case AllocatorPyMallocDebug:
		return "pymalloc debug"
	case AllocatorMalloc:
		// Reproduces memray's mislabeling of the
		// plain malloc allocator as "pymalloc" in the debug dump.
		return "pymalloc"
	case AllocatorOther:
		return "other"
	default:
		return fmt.Sprintf("<unknown python allocator %d>", uint8(k))
	}
}

// Allocator identifies which allocation function produced a given
// allocation record. It is carried in the flag bits of every
// allocation-kind record's type-and-flags byte.
type Allocator uint8

const (
	AllocatorFnMalloc Allocator = iota
	AllocatorFnFree
	AllocatorFnCalloc
	AllocatorFnRealloc
	AllocatorFnPosixMemalign
	AllocatorFnMemalign
	AllocatorFnValloc
	AllocatorFnPvalloc
	AllocatorFnMmap
	AllocatorFnMunmap
)

func (a Allocator) String() string {
	switch a {
	case AllocatorFnMalloc:
		return "malloc"
	case AllocatorFnFree:
		return "free"
	case AllocatorFnCalloc:
		return "calloc"
	case AllocatorFnRealloc:
		return "realloc"
	case AllocatorFnPosixMemalign:
		return "posix_memalign"
	case AllocatorFnMemalign:
		return "memalign"
	case AllocatorFnValloc:
		return "valloc"
	case AllocatorFnPvalloc:
		return "pvalloc"
	case AllocatorFnMmap:
		return "mmap"
	case AllocatorFnMunmap:
		return "munmap"
	default:
		return fmt.Sprintf("<unknown allocator %d>", uint8(a))
	}
}

// RecordType tags the kind of a body record.
type RecordType uint8

const (
	RecordUninitialized RecordType = iota
	RecordAllocation
	RecordAllocationWithNative
	RecordFramePush
	RecordFramePop
	RecordFrameIndex
	RecordNativeTraceIndex
	RecordMemoryMapStart
	RecordSegmentHeader
	RecordSegment
	RecordThreadRecord
	RecordMemoryRecord
	RecordContextSwitch
)

func (t RecordType) String() string {
	switch t {
	case RecordUninitialized:
		return "UNINITIALIZED"
	case RecordAllocation:
		return "ALLOCATION"
	case RecordAllocationWithNative:
		return "ALLOCATION_WITH_NATIVE"
	case RecordFramePush:
		return "FRAME_PUSH"
	case RecordFramePop:
		return "FRAME_POP"
	case RecordFrameIndex:
		return "FRAME_INDEX"
	case RecordNativeTraceIndex:
		return "NATIVE_TRACE_INDEX"
	case RecordMemoryMapStart:
		return "MEMORY_MAP_START"
	case RecordSegmentHeader:
		return "SEGMENT_HEADER"
	case RecordSegment:
		return "SEGMENT"
	case RecordThreadRecord:
		return "THREAD_RECORD"
	case RecordMemoryRecord:
		return "MEMORY_RECORD"
	case RecordContextSwitch:
		return "CONTEXT_SWITCH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// recordTypeBits is the width, in bits, of the record-type field
// packed into the low bits of a RecordTypeAndFlags byte. The
// remaining high bits carry the per-record flags (currently only the
// Allocator kind, for allocation records).
const recordTypeBits = 4

// RecordTypeAndFlags is the single-byte header prefixing every body
// record.
type RecordTypeAndFlags struct {
	Type  RecordType
	Flags uint8
}

func decodeRecordTypeAndFlags(b byte) RecordTypeAndFlags {
	return RecordTypeAndFlags{
		Type:  RecordType(b & (1<<recordTypeBits - 1)),
		Flags: b >> recordTypeBits,
	}
}

func (r RecordTypeAndFlags) encode() byte {
	return byte(r.Type)&(1<<recordTypeBits-1) | r.Flags<<recordTypeBits
}

// TrackerStats is the fixed-layout statistics block carried in the
// header.
type TrackerStats struct {
	NAllocations uint64
	NFrames      uint64
	StartTime    int64
	EndTime      int64
}

const trackerStatsSize = 8 + 8 + 8 + 8

package recordstream

import (
	"encoding/binary"
	"fmt"
)

// AllocationRecord is the managed-only allocation body.
type AllocationRecord struct {
	Address   uint64
	Size      uint64
	Allocator Allocator
}

// AllocationWithNativeRecord additionally carries the head of a
// native-frame inlining chain.
type AllocationWithNativeRecord struct {
	Address       uint64
	Size          uint64
	NativeFrameID uint64
	Allocator     Allocator
}

type framePushRecord struct{ frameID uint64 }
type framePopRecord struct{ count uint8 }
type frameIndexRecord struct {
	frameID  uint64
	function string
	filename string
	lineno   int32
}
type nativeTraceIndexRecord struct {
	ip          uint64
	parentIndex uint64
}
type segmentHeaderRecord struct {
	filename    string
	numSegments uint64
	baseAddr    uint64
}
type threadRecordPayload struct{ name string }
type memoryRecordPayload struct {
	msSinceEpoch int64
	rss          uint64
}
type contextSwitchPayload struct{ tid uint64 }

// readUint64 and readInt32 read a fixed-width little-endian field.
// uintptr/size_t fields are the host word width of the producer;
// this port fixes them at 64 bits, since cross-architecture
// compatibility between producer and reader is out of scope.
func readUint64(src ByteSource) (uint64, bool) {
	var buf [8]byte
	if !src.ReadExact(buf[:]) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf[:]), true
}

func readInt32(src ByteSource) (int32, bool) {
	var buf [4]byte
	if !src.ReadExact(buf[:]) {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), true
}

func parseAllocation(src ByteSource, flags uint8) (AllocationRecord, error) {
	addr, ok := readUint64(src)
	if !ok {
		return AllocationRecord{}, fmt.Errorf("read address: %w", ErrTruncatedBody)
	}
	size, err := decodeVarint(src)
	if err != nil {
		return AllocationRecord{}, fmt.Errorf("read size: %w", err)
	}
	return AllocationRecord{Address: addr, Size: size, Allocator: Allocator(flags)}, nil
}

func parseAllocationWithNative(src ByteSource, flags uint8) (AllocationWithNativeRecord, error) {
	addr, ok := readUint64(src)
	if !ok {
		return AllocationWithNativeRecord{}, fmt.Errorf("read address: %w", ErrTruncatedBody)
	}
	size, err := decodeVarint(src)
	if err != nil {
		return AllocationWithNativeRecord{}, fmt.Errorf("read size: %w", err)
	}
	nativeFrameID, err := decodeVarint(src)
	if err != nil {
		return AllocationWithNativeRecord{}, fmt.Errorf("read native_frame_id: %w", err)
	}
	return AllocationWithNativeRecord{
		Address:       addr,
		Size:          size,
		NativeFrameID: nativeFrameID,
		Allocator:     Allocator(flags),
	}, nil
}

func parseFramePush(src ByteSource) (framePushRecord, error) {
	frameID, ok := readUint64(src)
	if !ok {
		return framePushRecord{}, fmt.Errorf("read frame_id: %w", ErrTruncatedBody)
	}
	return framePushRecord{frameID: frameID}, nil
}

func parseFramePop(src ByteSource) (framePopRecord, error) {
	var buf [1]byte
	if !src.ReadExact(buf[:]) {
		return framePopRecord{}, fmt.Errorf("read count: %w", ErrTruncatedBody)
	}
	return framePopRecord{count: buf[0]}, nil
}

func parseFrameIndex(src ByteSource) (frameIndexRecord, error) {
	frameID, ok := readUint64(src)
	if !ok {
		return frameIndexRecord{}, fmt.Errorf("read frame_id: %w", ErrTruncatedBody)
	}
	function, ok := src.ReadUntil(0)
	if !ok {
		return frameIndexRecord{}, fmt.Errorf("read function: %w", ErrTruncatedBody)
	}
	filename, ok := src.ReadUntil(0)
	if !ok {
		return frameIndexRecord{}, fmt.Errorf("read filename: %w", ErrTruncatedBody)
	}
	lineno, ok := readInt32(src)
	if !ok {
		return frameIndexRecord{}, fmt.Errorf("read lineno: %w", ErrTruncatedBody)
	}
	return frameIndexRecord{frameID: frameID, function: function, filename: filename, lineno: lineno}, nil
}

func parseNativeTraceIndex(src ByteSource) (nativeTraceIndexRecord, error) {
	ip, ok := readUint64(src)
	if !ok {
		return nativeTraceIndexRecord{}, fmt.Errorf("read ip: %w", ErrTruncatedBody)
	}
	parentIndex, err := decodeVarint(src)
	if err != nil {
		return nativeTraceIndexRecord{}, fmt.Errorf("read parent_index: %w", err)
	}
	return nativeTraceIndexRecord{ip: ip, parentIndex: parentIndex}, nil
}

func parseSegmentHeader(src ByteSource) (segmentHeaderRecord, error) {
	filename, ok := src.ReadUntil(0)
	if !ok {
		return segmentHeaderRecord{}, fmt.Errorf("read filename: %w", ErrTruncatedBody)
	}
	numSegments, ok := readUint64(src)
	if !ok {
		return segmentHeaderRecord{}, fmt.Errorf("read num_segments: %w", ErrTruncatedBody)
	}
	baseAddr, ok := readUint64(src)
	if !ok {
		return segmentHeaderRecord{}, fmt.Errorf("read base_addr: %w", ErrTruncatedBody)
	}
	return segmentHeaderRecord{filename: filename, numSegments: numSegments, baseAddr: baseAddr}, nil
}

func parseSegment(src ByteSource) (Segment, error) {
	vaddr, ok := readUint64(src)
	if !ok {
		return Segment{}, fmt.Errorf("read vaddr: %w", ErrTruncatedBody)
	}
	memsz, ok := readUint64(src)
	if !ok {
		return Segment{}, fmt.Errorf("read memsz: %w", ErrTruncatedBody)
	}
	return Segment{VAddr: vaddr, MemSz: memsz}, nil
}

func parseThreadRecord(src ByteSource) (threadRecordPayload, error) {
	name, ok := src.ReadUntil(0)
	if !ok {
		return threadRecordPayload{}, fmt.Errorf("read name: %w", ErrTruncatedBody)
	}
	return threadRecordPayload{name: name}, nil
}

func parseMemoryRecord(src ByteSource) (memoryRecordPayload, error) {
	var msBuf [8]byte
	if !src.ReadExact(msBuf[:]) {
		return memoryRecordPayload{}, fmt.Errorf("read ms_since_epoch: %w", ErrTruncatedBody)
	}
	rss, ok := readUint64(src)
	if !ok {
		return memoryRecordPayload{}, fmt.Errorf("read rss: %w", ErrTruncatedBody)
	}
	return memoryRecordPayload{msSinceEpoch: int64(binary.LittleEndian.Uint64(msBuf[:])), rss: rss}, nil
}

func parseContextSwitch(src ByteSource) (contextSwitchPayload, error) {
	tid, ok := readUint64(src)
	if !ok {
		return contextSwitchPayload{}, fmt.Errorf("read tid: %w", ErrTruncatedBody)
	}
	return contextSwitchPayload{tid: tid}, nil
}

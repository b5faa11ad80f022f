package recordstream

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed-format preamble every stream carries, read once
// at construction and immutable thereafter.
type Header struct {
	Version         uint32
	NativeTraces    bool
	Stats           TrackerStats
	CommandLine     string
	PID             int32
	PythonAllocator AllocatorKind
}

// decodeHeader reads and validates the header: magic, then version,
// then native_traces, then the stats struct, the NUL-terminated
// command line, the PID, and the allocator kind. Any short read past
// the magic/version check is ErrTruncatedHeader.
//
// Grounded on the original record reader's RecordReader::readHeader
// and on the fixed field order documented for the on-disk header.
func decodeHeader(src ByteSource) (Header, error) {
	var h Header

	var magic [4]byte
	if !src.ReadExact(magic[:]) {
		return h, fmt.Errorf("read magic: %w", ErrTruncatedHeader)
	}
	if magic != Magic {
		return h, ErrInvalidFormat
	}

	var versionBuf [4]byte
	if !src.ReadExact(versionBuf[:]) {
		return h, fmt.Errorf("read version: %w", ErrTruncatedHeader)
	}
	h.Version = binary.LittleEndian.Uint32(versionBuf[:])
	if h.Version != CurrentVersion {
		return h, ErrVersionMismatch
	}

	var nativeTracesBuf [1]byte
	if !src.ReadExact(nativeTracesBuf[:]) {
		return h, fmt.Errorf("read native_traces: %w", ErrTruncatedHeader)
	}
	h.NativeTraces = nativeTracesBuf[0] != 0

	var statsBuf [trackerStatsSize]byte
	if !src.ReadExact(statsBuf[:]) {
		return h, fmt.Errorf("read stats: %w", ErrTruncatedHeader)
	}
	h.Stats = TrackerStats{
		NAllocations: binary.LittleEndian.Uint64(statsBuf[0:8]),
		NFrames:      binary.LittleEndian.Uint64(statsBuf[8:16]),
		StartTime:    int64(binary.LittleEndian.Uint64(statsBuf[16:24])),
		EndTime:      int64(binary.LittleEndian.Uint64(statsBuf[24:32])),
	}

	commandLine, ok := src.ReadUntil(0)
	if !ok {
		return h, fmt.Errorf("read command line: %w", ErrTruncatedHeader)
	}
	h.CommandLine = commandLine

	var pidBuf [4]byte
	if !src.ReadExact(pidBuf[:]) {
		return h, fmt.Errorf("read pid: %w", ErrTruncatedHeader)
	}
	h.PID = int32(binary.LittleEndian.Uint32(pidBuf[:]))

	var allocatorBuf [1]byte
	if !src.ReadExact(allocatorBuf[:]) {
		return h, fmt.Errorf("read python_allocator: %w", ErrTruncatedHeader)
	}
	h.PythonAllocator = AllocatorKind(allocatorBuf[0])

	return h, nil
}

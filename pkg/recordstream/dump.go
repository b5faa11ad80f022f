package recordstream

import (
	"context"
	"fmt"
	"io"
)

// DumpRecords decodes src's header and then walks the raw record
// stream, writing one human-readable line per record to w. It calls
// only the parseX functions for each record body — never
// RecordReader's processing/handler methods — so it never mutates a
// frame tree, frame dictionary, stack registry, or segment resolver.
// A diagnostic dump of a capture must not have side effects on state a
// consumer would otherwise build up.
//
// Modeled on memray's dumpAllRecords debug entrypoint: it prints a
// line for every record type, including an unrecognized-tag default
// case, and stops cleanly at end of file, on a body error, or when ctx
// is cancelled (standing in for memray's PyErr_CheckSignals host-
// cancellation check).
func DumpRecords(ctx context.Context, w io.Writer, src ByteSource) error {
	h, err := decodeHeader(src)
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	fmt.Fprintf(w, "HEADER version=%d native_traces=%t n_allocations=%d n_frames=%d start_time=%d end_time=%d pid=%d command_line=%q python_allocator=%s\n",
		h.Version, h.NativeTraces, h.Stats.NAllocations, h.Stats.NFrames, h.Stats.StartTime, h.Stats.EndTime, h.PID, h.CommandLine, h.PythonAllocator)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var tagBuf [1]byte
		if !src.ReadExact(tagBuf[:]) {
			return nil
		}
		tf := decodeRecordTypeAndFlags(tagBuf[0])

		switch tf.Type {
		case RecordUninitialized:
			// Trailing padding; nothing to do.

		case RecordAllocationWithNative:
			rec, err := parseAllocationWithNative(src, tf.Flags)
			if err != nil {
				return fmt.Errorf("dump ALLOCATION_WITH_NATIVE: %w", err)
			}
			fmt.Fprintf(w, "ALLOCATION_WITH_NATIVE address=%#x size=%d allocator=%s native_frame_id=%d\n",
				rec.Address, rec.Size, rec.Allocator, rec.NativeFrameID)

		case RecordAllocation:
			rec, err := parseAllocation(src, tf.Flags)
			if err != nil {
				return fmt.Errorf("dump ALLOCATION: %w", err)
			}
			fmt.Fprintf(w, "ALLOCATION address=%#x size=%d allocator=%s\n", rec.Address, rec.Size, rec.Allocator)

		case RecordFramePush:
			rec, err := parseFramePush(src)
			if err != nil {
				return fmt.Errorf("dump FRAME_PUSH: %w", err)
			}
			fmt.Fprintf(w, "FRAME_PUSH frame_id=%d\n", rec.frameID)

		case RecordFramePop:
			rec, err := parseFramePop(src)
			if err != nil {
				return fmt.Errorf("dump FRAME_POP: %w", err)
			}
			fmt.Fprintf(w, "FRAME_POP count=%d\n", rec.count)

		case RecordFrameIndex:
			rec, err := parseFrameIndex(src)
			if err != nil {
				return fmt.Errorf("dump FRAME_INDEX: %w", err)
			}
			fmt.Fprintf(w, "FRAME_ID frame_id=%d function_name=%s filename=%s lineno=%d\n",
				rec.frameID, rec.function, rec.filename, rec.lineno)

		case RecordNativeTraceIndex:
			rec, err := parseNativeTraceIndex(src)
			if err != nil {
				return fmt.Errorf("dump NATIVE_TRACE_INDEX: %w", err)
			}
			fmt.Fprintf(w, "NATIVE_FRAME_ID ip=%#x index=%d\n", rec.ip, rec.parentIndex)

		case RecordMemoryMapStart:
			fmt.Fprintf(w, "MEMORY_MAP_START\n")

		case RecordSegmentHeader:
			rec, err := parseSegmentHeader(src)
			if err != nil {
				return fmt.Errorf("dump SEGMENT_HEADER: %w", err)
			}
			fmt.Fprintf(w, "SEGMENT_HEADER filename=%s num_segments=%d addr=%#x\n",
				rec.filename, rec.numSegments, rec.baseAddr)

		case RecordSegment:
			rec, err := parseSegment(src)
			if err != nil {
				return fmt.Errorf("dump SEGMENT: %w", err)
			}
			fmt.Fprintf(w, "SEGMENT %#x %#x\n", rec.VAddr, rec.MemSz)

		case RecordThreadRecord:
			rec, err := parseThreadRecord(src)
			if err != nil {
				return fmt.Errorf("dump THREAD_RECORD: %w", err)
			}
			fmt.Fprintf(w, "THREAD %s\n", rec.name)

		case RecordMemoryRecord:
			rec, err := parseMemoryRecord(src)
			if err != nil {
				return fmt.Errorf("dump MEMORY_RECORD: %w", err)
			}
			fmt.Fprintf(w, "MEMORY_RECORD time=%d memory=%#x\n", rec.msSinceEpoch, rec.rss)

		case RecordContextSwitch:
			rec, err := parseContextSwitch(src)
			if err != nil {
				return fmt.Errorf("dump CONTEXT_SWITCH: %w", err)
			}
			fmt.Fprintf(w, "CONTEXT_SWITCH tid=%d\n", rec.tid)

		default:
			fmt.Fprintf(w, "UNKNOWN RECORD TYPE %d\n", uint8(tf.Type))
			return fmt.Errorf("%w: %d", ErrUnknownRecordType, tf.Type)
		}
	}
}

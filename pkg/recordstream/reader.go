package recordstream

import (
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

// RecordResult is the three-way outcome of NextRecord: a record the
// caller should inspect via LatestAllocation/LatestMemoryRecord, a
// clean end of stream, or a body error. The boundary between a clean
// EOF and a bad stream is deliberately distinguishable at the call
// site.
type RecordResult uint8

const (
	ResultError RecordResult = iota
	ResultEndOfFile
	ResultAllocation
	ResultMemory
)

// Allocation is the latest-allocation snapshot: consumers copy it out
// after NextRecord reports ResultAllocation.
type Allocation struct {
	TID                     uint64
	Address                 uint64
	Size                    uint64
	Allocator               Allocator
	FrameIndex              uint64
	NativeFrameID           uint64
	NativeSegmentGeneration uint64
	NAllocations            uint64
}

// MemorySample is the latest memory-record snapshot.
type MemorySample struct {
	MsSinceEpoch int64
	RSS          uint64
}

// RecordReader owns a header fixed at construction, a byte source,
// and all derived tables: the frame tree, frame/native-frame
// dictionaries, per-thread stack registry, thread-name map, and the
// latest allocation/memory snapshots.
//
// Modeled on memray's RecordReader class (global parsing state
// turned into an owned object) and on the functional-options
// construction idiom used throughout pyroscope.
type RecordReader struct {
	header      Header
	src         ByteSource
	trackStacks bool
	logger      log.Logger
	metrics     *metrics

	mu       sync.Mutex // guards tree, dict, and resolver mutation/traversal.
	tree     *frameTree
	dict     *frameDict
	resolver SegmentResolver

	stacks           *stackRegistry
	threadNames      map[uint64]string
	latestAllocation Allocation
	latestMemory     MemorySample
}

// RecordReaderOption configures a RecordReader at construction.
type RecordReaderOption func(*RecordReader)

// WithLogger sets the logger used for body-error reporting. Defaults
// to a no-op logger.
func WithLogger(logger log.Logger) RecordReaderOption {
	return func(r *RecordReader) { r.logger = logger }
}

// WithStackTracking enables or disables call-stack and frame-table
// bookkeeping. Disabled, every frame/native-frame record is still
// parsed (to keep the stream synchronized) but its payload is
// discarded.
func WithStackTracking(enabled bool) RecordReaderOption {
	return func(r *RecordReader) { r.trackStacks = enabled }
}

// WithSegmentResolver supplies the symbol-resolution collaborator.
// Defaults to a resolver that tracks the generation counter correctly
// but never resolves anything.
func WithSegmentResolver(resolver SegmentResolver) RecordReaderOption {
	return func(r *RecordReader) { r.resolver = resolver }
}

// WithMetrics registers the reader's ambient record/error counters
// with reg. Unset, no metrics are collected.
func WithMetrics(reg prometheus.Registerer) RecordReaderOption {
	return func(r *RecordReader) { r.metrics = newMetrics(reg) }
}

// NewRecordReader decodes src's header and returns a ready-to-use
// reader. A header error (bad magic, version mismatch, truncation)
// leaves the reader unusable.
func NewRecordReader(src ByteSource, opts ...RecordReaderOption) (*RecordReader, error) {
	r := &RecordReader{
		src:         src,
		trackStacks: true,
		logger:      log.NewNopLogger(),
		resolver:    &nullResolver{},
		tree:        newFrameTree(),
		dict:        newFrameDict(),
		stacks:      newStackRegistry(),
		threadNames: make(map[uint64]string, 16),
	}
	for _, opt := range opts {
		opt(r)
	}
	header, err := decodeHeader(src)
	if err != nil {
		return nil, err
	}
	r.header = header
	return r, nil
}

// NextRecord reads and processes records until it finds one a
// consumer cares about (an allocation or memory record), reaches a
// clean end of stream, or fails. Stack motion, frame/native indices,
// thread records, context switches, and memory-map/segment groups
// are absorbed silently; Uninitialized padding bytes are skipped.
func (r *RecordReader) NextRecord() RecordResult {
	for {
		var tagBuf [1]byte
		if !r.src.ReadExact(tagBuf[:]) {
			return ResultEndOfFile
		}
		tf := decodeRecordTypeAndFlags(tagBuf[0])
		r.metrics.observeRecord(tf.Type)

		var err error
		switch tf.Type {
		case RecordUninitialized:
			// Trailing padding; nothing to do.
		case RecordAllocation:
			if err = r.handleAllocation(tf.Flags); err == nil {
				return ResultAllocation
			}
		case RecordAllocationWithNative:
			if err = r.handleAllocationWithNative(tf.Flags); err == nil {
				return ResultAllocation
			}
		case RecordMemoryRecord:
			if err = r.handleMemoryRecord(); err == nil {
				return ResultMemory
			}
		case RecordContextSwitch:
			err = r.handleContextSwitch()
		case RecordFramePush:
			err = r.handleFramePush()
		case RecordFramePop:
			err = r.handleFramePop()
		case RecordFrameIndex:
			err = r.handleFrameIndex()
		case RecordNativeTraceIndex:
			err = r.handleNativeTraceIndex()
		case RecordMemoryMapStart:
			err = r.handleMemoryMapStart()
		case RecordSegmentHeader:
			err = r.handleSegmentHeader()
		case RecordThreadRecord:
			err = r.handleThreadRecord()
		default:
			err = fmt.Errorf("%w: %d", ErrUnknownRecordType, tf.Type)
		}

		if err != nil {
			if r.src.IsOpen() {
				level.Error(r.logger).Log("msg", "failed to process record", "type", tf.Type.String(), "err", err)
			}
			r.metrics.observeError()
			return ResultError
		}
	}
}

func (r *RecordReader) handleAllocation(flags uint8) error {
	rec, err := parseAllocation(r.src, flags)
	if err != nil {
		return err
	}
	r.processAllocation(rec)
	return nil
}

func (r *RecordReader) handleAllocationWithNative(flags uint8) error {
	rec, err := parseAllocationWithNative(r.src, flags)
	if err != nil {
		return err
	}
	r.processAllocationWithNative(rec)
	return nil
}

func (r *RecordReader) processAllocation(rec AllocationRecord) {
	tid := r.stacks.currentThread
	var frameIndex uint64
	if r.trackStacks {
		frameIndex = r.stacks.top(tid)
	}
	r.latestAllocation = Allocation{
		TID:          tid,
		Address:      rec.Address,
		Size:         rec.Size,
		Allocator:    rec.Allocator,
		FrameIndex:   frameIndex,
		NAllocations: 1,
	}
}

func (r *RecordReader) processAllocationWithNative(rec AllocationWithNativeRecord) {
	tid := r.stacks.currentThread
	var frameIndex, nativeFrameID, generation uint64
	if r.trackStacks {
		frameIndex = r.stacks.top(tid)
		nativeFrameID = rec.NativeFrameID
		r.mu.Lock()
		generation = r.resolver.CurrentSegmentGeneration()
		r.mu.Unlock()
	}
	r.latestAllocation = Allocation{
		TID:                     tid,
		Address:                 rec.Address,
		Size:                    rec.Size,
		Allocator:               rec.Allocator,
		FrameIndex:              frameIndex,
		NativeFrameID:           nativeFrameID,
		NativeSegmentGeneration: generation,
		NAllocations:            1,
	}
}

func (r *RecordReader) handleMemoryRecord() error {
	rec, err := parseMemoryRecord(r.src)
	if err != nil {
		return err
	}
	r.latestMemory = MemorySample{MsSinceEpoch: rec.msSinceEpoch, RSS: rec.rss}
	return nil
}

func (r *RecordReader) handleContextSwitch() error {
	rec, err := parseContextSwitch(r.src)
	if err != nil {
		return err
	}
	r.stacks.contextSwitch(rec.tid)
	return nil
}

func (r *RecordReader) handleFramePush() error {
	rec, err := parseFramePush(r.src)
	if err != nil {
		return err
	}
	if !r.trackStacks {
		return nil
	}
	tid := r.stacks.currentThread
	top := r.stacks.top(tid)
	r.mu.Lock()
	idx := r.tree.getTraceIndex(top, rec.frameID)
	r.mu.Unlock()
	r.stacks.pushIndex(tid, idx)
	return nil
}

func (r *RecordReader) handleFramePop() error {
	rec, err := parseFramePop(r.src)
	if err != nil {
		return err
	}
	if !r.trackStacks {
		return nil
	}
	return r.stacks.pop(r.stacks.currentThread, int(rec.count))
}

func (r *RecordReader) handleFrameIndex() error {
	rec, err := parseFrameIndex(r.src)
	if err != nil {
		return err
	}
	if !r.trackStacks {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dict.insertFrame(rec.frameID, FrameDescriptor{
		FunctionName: rec.function,
		Filename:     rec.filename,
		Lineno:       rec.lineno,
	})
}

func (r *RecordReader) handleNativeTraceIndex() error {
	rec, err := parseNativeTraceIndex(r.src)
	if err != nil {
		return err
	}
	if !r.trackStacks {
		return nil
	}
	r.mu.Lock()
	r.dict.appendNativeFrame(rec.ip, rec.parentIndex)
	r.mu.Unlock()
	return nil
}

func (r *RecordReader) handleMemoryMapStart() error {
	r.mu.Lock()
	r.resolver.ClearSegments()
	r.mu.Unlock()
	return nil
}

func (r *RecordReader) handleSegmentHeader() error {
	hdr, err := parseSegmentHeader(r.src)
	if err != nil {
		return err
	}
	segments := make([]Segment, 0, hdr.numSegments)
	for i := uint64(0); i < hdr.numSegments; i++ {
		var tagBuf [1]byte
		if !r.src.ReadExact(tagBuf[:]) {
			return fmt.Errorf("read segment tag: %w", ErrTruncatedBody)
		}
		tf := decodeRecordTypeAndFlags(tagBuf[0])
		if tf.Type != RecordSegment {
			return fmt.Errorf("%w: expected SEGMENT, got %s", ErrUnexpectedTag, tf.Type)
		}
		seg, err := parseSegment(r.src)
		if err != nil {
			return err
		}
		if r.trackStacks {
			segments = append(segments, seg)
		}
	}
	if r.trackStacks {
		r.mu.Lock()
		r.resolver.AddSegments(hdr.filename, hdr.baseAddr, segments)
		r.mu.Unlock()
	}
	return nil
}

func (r *RecordReader) handleThreadRecord() error {
	rec, err := parseThreadRecord(r.src)
	if err != nil {
		return err
	}
	r.threadNames[r.stacks.currentThread] = rec.name
	return nil
}

// Header returns an immutable copy of the stream's header.
func (r *RecordReader) Header() Header { return r.header }

// GetThreadName returns tid's last-recorded name, or "" if unknown.
func (r *RecordReader) GetThreadName(tid uint64) string { return r.threadNames[tid] }

// LatestAllocation returns the most recently decoded allocation.
func (r *RecordReader) LatestAllocation() Allocation { return r.latestAllocation }

// LatestMemoryRecord returns the most recently decoded memory sample.
func (r *RecordReader) LatestMemoryRecord() MemorySample { return r.latestMemory }

// IsOpen reports whether the underlying byte source is still open.
func (r *RecordReader) IsOpen() bool { return r.src.IsOpen() }

// Close forwards to the byte source. It does not unblock a concurrent
// read in progress; the caller is expected to tear down the source
// underneath.
func (r *RecordReader) Close() error { return r.src.Close() }

// WalkManagedStack starts at index and repeatedly walks the frame
// tree until it reaches the root or has emitted maxFrames descriptors
// (maxFrames <= 0 means unlimited). It runs under the coarse mutex so
// it sees a coherent view of the tree and dictionary.
func (r *RecordReader) WalkManagedStack(index uint64, maxFrames int) ([]FrameDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FrameDescriptor
	for index != frameTreeRoot && (maxFrames <= 0 || len(out) < maxFrames) {
		frameID, parent, ok := r.tree.nextNode(index)
		if !ok {
			break
		}
		desc, ok := r.dict.lookupFrame(frameID)
		if !ok {
			return out, ErrCorruptState
		}
		out = append(out, desc)
		index = parent
	}
	return out, nil
}

// WalkNativeStack starts at index in the native-frame list and
// follows parent links, resolving each IP against generation — the
// generation that was in force when the allocation under
// investigation was recorded. IPs the resolver can't resolve are
// skipped, not treated as a terminator.
func (r *RecordReader) WalkNativeStack(index uint64, generation uint64, maxFrames int) []ResolvedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ResolvedFrame
	for index != 0 && (maxFrames <= 0 || len(out) < maxFrames) {
		frame, ok := r.dict.nativeFrameAt(index)
		if !ok {
			break
		}
		index = frame.parentIndex
		resolved := r.resolver.Resolve(frame.ip, generation)
		for _, f := range resolved {
			if maxFrames > 0 && len(out) >= maxFrames {
				return out
			}
			out = append(out, f)
		}
	}
	return out
}

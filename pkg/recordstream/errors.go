package recordstream

import "errors"

// Header-construction errors. Any of these leaves the reader unusable.
var (
	ErrInvalidFormat   = errors.New("invalid format: bad magic")
	ErrVersionMismatch = errors.New("version mismatch")
	ErrTruncatedHeader = errors.New("truncated header")
)

// Body errors, surfaced from NextRecord as the Error result.
var (
	ErrTruncatedBody     = errors.New("truncated body")
	ErrDuplicateFrameID  = errors.New("duplicate frame id")
	ErrUnexpectedTag     = errors.New("unexpected record tag")
	ErrUnknownRecordType = errors.New("unknown record type")
	ErrMalformedVarint   = errors.New("malformed varint")
)

// Semantic errors raised by the query surface, and by NextRecord for a
// FRAME_POP deeper than the current thread's stack.
var ErrCorruptState = errors.New("corrupt reader state")

package recordstream

import "fmt"

// decodeVarint reads an unsigned LEB128-encoded integer from src: each
// byte contributes 7 payload bits, the high bit marks continuation.
// It fails if src ends mid-varint, or if the accumulated shift would
// reach 64 before a terminating byte is seen (overlong/malformed).
//
// Grounded on the jfr-parser reader's ulong() decoder and on the
// original record reader's readVarint, which this mirrors byte for
// byte.
func decodeVarint(src ByteSource) (uint64, error) {
	var (
		result uint64
		shift  uint
		b      [1]byte
	)
	for {
		if !src.ReadExact(b[:]) {
			return 0, ErrTruncatedBody
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("%w: shift reached 64 before terminator", ErrMalformedVarint)
		}
	}
}

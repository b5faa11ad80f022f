package recordstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_decodeVarint_roundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1, ^uint64(0)} {
		src := newSliceSource(encodeVarintForTest(v))
		got, err := decodeVarint(src)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func Test_decodeVarint_truncated(t *testing.T) {
	src := newSliceSource([]byte{0x80}) // continuation bit set, then nothing.
	_, err := decodeVarint(src)
	require.ErrorIs(t, err, ErrTruncatedBody)
}

func Test_decodeVarint_malformed(t *testing.T) {
	// Ten continuation bytes push the shift past 63 before any
	// terminator; ten bytes ending in a terminator would still be a
	// valid 64-bit varint.
	data := make([]byte, 11)
	for i := range data {
		data[i] = 0x80
	}
	data[10] = 0x01
	src := newSliceSource(data)
	_, err := decodeVarint(src)
	require.ErrorIs(t, err, ErrMalformedVarint)
}

// encodeVarintForTest mirrors decodeVarint's LEB128 scheme, kept local
// to this file rather than reusing streamtest.Builder's varint writer,
// so this test doesn't depend on another package.
func encodeVarintForTest(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

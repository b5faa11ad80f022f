package recordstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AllocatorKind_String_reproducesPymallocMislabel(t *testing.T) {
	assert.Equal(t, "pymalloc", AllocatorPyMalloc.String())
	assert.Equal(t, "pymalloc", AllocatorMalloc.String())
	assert.Equal(t, "pymalloc debug", AllocatorPyMallocDebug.String())
	assert.Equal(t, "other", AllocatorOther.String())
}

func Test_Allocator_String_unknownFallback(t *testing.T) {
	assert.Equal(t, "malloc", AllocatorFnMalloc.String())
	assert.Contains(t, Allocator(200).String(), "unknown allocator")
}

func Test_RecordTypeAndFlags_roundTrip(t *testing.T) {
	for _, rt := range []RecordType{RecordAllocation, RecordFramePush, RecordContextSwitch} {
		for flags := uint8(0); flags < 16; flags++ {
			original := RecordTypeAndFlags{Type: rt, Flags: flags}
			decoded := decodeRecordTypeAndFlags(original.encode())
			assert.Equal(t, original, decoded)
		}
	}
}

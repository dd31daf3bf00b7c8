package workflow

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"graph":%d}`, i))
}

func TestOrderBuffer_HoldsUntilPrefixIsContiguous(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	buffer := newOrderBuffer()

	// --- Act / Assert ---
	// Indices 2 and 1 arrive first: nothing is ready while 0 is outstanding.
	assert.Empty(t, buffer.add(2, rec(2)))
	assert.Empty(t, buffer.add(1, rec(1)))
	assert.Equal(t, 2, buffer.held())

	// Index 0 releases the whole contiguous prefix in order.
	ready := buffer.add(0, rec(0))
	require.Len(t, ready, 3)
	assert.Equal(t, rec(0), ready[0])
	assert.Equal(t, rec(1), ready[1])
	assert.Equal(t, rec(2), ready[2])
	assert.Equal(t, 0, buffer.held())
}

func TestOrderBuffer_InOrderArrivalFlushesImmediately(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	buffer := newOrderBuffer()

	// --- Act / Assert ---
	for i := 0; i < 4; i++ {
		ready := buffer.add(i, rec(i))
		require.Len(t, ready, 1, "in-order record %d should flush immediately", i)
		assert.Equal(t, rec(i), ready[0])
	}
	assert.Equal(t, 0, buffer.held())
}

package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFifoCapacityClamped(t *testing.T) {
	fifo := newEmergencyFifo(0)
	assert.Equal(t, MinFifoCapacity, fifo.capacity())

	fifo = newEmergencyFifo(1000)
	assert.Equal(t, MaxFifoCapacity, fifo.capacity())
}

func TestFifoPushPopPreservesOrder(t *testing.T) {
	fifo := newEmergencyFifo(6)

	assert.True(t, fifo.empty())
	assert.True(t, fifo.push(emMessage{msg: 1}))
	assert.True(t, fifo.push(emMessage{msg: 2}))
	assert.False(t, fifo.empty())

	msg, ok := fifo.pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), msg.msg)

	msg, ok = fifo.pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), msg.msg)

	_, ok = fifo.pop()
	assert.False(t, ok)
}

func TestFifoOverflowAtCapacityPlusOne(t *testing.T) {
	const cap = 2
	fifo := newEmergencyFifo(cap)

	for i := 0; i < cap; i++ {
		assert.True(t, fifo.push(emMessage{msg: uint32(i)}))
	}
	assert.Equal(t, overflowNone, fifo.overflow)

	ok := fifo.push(emMessage{msg: 99})
	assert.False(t, ok)
	assert.Equal(t, overflowPending, fifo.overflow)

	// The rejected push must not have disturbed the queued entries.
	msg, ok := fifo.pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), msg.msg)
}

func TestFifoHistoryCountOnlyGrowsUntilExplicitClear(t *testing.T) {
	fifo := newEmergencyFifo(4)

	fifo.push(emMessage{msg: 1})
	fifo.push(emMessage{msg: 2})
	assert.Equal(t, 2, fifo.historyCount)

	fifo.pop()
	assert.Equal(t, 2, fifo.historyCount, "draining the ring must not affect the history count")

	fifo.push(emMessage{msg: 3})
	assert.Equal(t, 3, fifo.historyCount)

	fifo.historyCount = 0
	assert.Equal(t, 0, fifo.historyCount)
}

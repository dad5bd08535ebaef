package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatusBitmapClampsWidth(t *testing.T) {
	small := newErrorStatusBitmap(8)
	assert.Equal(t, minErrorStatusBits, small.size())

	large := newErrorStatusBitmap(1024)
	assert.Equal(t, maxErrorStatusBits, large.size())

	odd := newErrorStatusBitmap(50)
	assert.Equal(t, 56, odd.size())
}

func TestErrorStatusBitmapSetAndTest(t *testing.T) {
	bitmap := newErrorStatusBitmap(EmergencyErrorStatusBits)

	assert.False(t, bitmap.test(EmCanBusWarning))

	previous := bitmap.set(EmCanBusWarning, true)
	assert.False(t, previous)
	assert.True(t, bitmap.test(EmCanBusWarning))

	previous = bitmap.set(EmCanBusWarning, true)
	assert.True(t, previous)

	previous = bitmap.set(EmCanBusWarning, false)
	assert.True(t, previous)
	assert.False(t, bitmap.test(EmCanBusWarning))
}

func TestErrorStatusBitmapOutOfRangeBitIsClear(t *testing.T) {
	bitmap := newErrorStatusBitmap(minErrorStatusBits)
	assert.False(t, bitmap.test(255))
	assert.False(t, bitmap.set(255, true))
}

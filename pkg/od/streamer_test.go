package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestEntry(t *testing.T, value []byte) *Entry {
	t.Helper()
	variable := &Variable{
		Name:         "test",
		value:        value,
		valueDefault: value,
		Attribute:    AttributeSdoRw,
		DataType:     DOMAIN,
	}
	dict := NewOD()
	entry := NewEntry(dict.logger, 0x2000, "test", variable, ObjectTypeVAR)
	dict.addEntry(entry)
	return entry
}

func TestPartialReadAcrossMultipleCalls(t *testing.T) {
	value := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	entry := newTestEntry(t, value)

	streamer, err := NewStreamer(entry, 0, true)
	assert.Nil(t, err)

	buf := make([]byte, 4)

	n, err := streamer.Read(buf)
	assert.Equal(t, ErrPartial, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
	assert.Equal(t, uint32(4), streamer.DataOffset)

	n, err = streamer.Read(buf)
	assert.Equal(t, ErrPartial, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{4, 5, 6, 7}, buf)
	assert.Equal(t, uint32(8), streamer.DataOffset)

	buf2 := make([]byte, 4)
	n, err = streamer.Read(buf2)
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{8, 9}, buf2[:2])
	assert.Equal(t, uint32(0), streamer.DataOffset)
}

func TestReadRestartsAfterOffsetReset(t *testing.T) {
	value := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	entry := newTestEntry(t, value)

	streamer, err := NewStreamer(entry, 0, true)
	assert.Nil(t, err)

	buf := make([]byte, 4)
	_, err = streamer.Read(buf)
	assert.Equal(t, ErrPartial, err)
	assert.Equal(t, uint32(4), streamer.DataOffset)

	streamer.DataOffset = 0
	n, err := streamer.Read(buf)
	assert.Equal(t, ErrPartial, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 1, 2, 3}, buf)
}

func TestWriteTooLongReturnsDataLong(t *testing.T) {
	value := make([]byte, 4)
	entry := newTestEntry(t, value)

	streamer, err := NewStreamer(entry, 0, true)
	assert.Nil(t, err)

	_, err = streamer.Write([]byte{1, 2, 3, 4, 5})
	assert.Equal(t, ErrDataLong, err)
}

func TestDisabledDomainWithoutExtension(t *testing.T) {
	variable := &Variable{Name: "domain", DataType: DOMAIN, Attribute: AttributeSdoRw}
	dict := NewOD()
	entry := NewEntry(dict.logger, 0x2001, "domain", variable, ObjectTypeVAR)
	dict.addEntry(entry)

	streamer, err := NewStreamer(entry, 0, false)
	assert.Nil(t, err)

	_, err = streamer.Read(make([]byte, 1))
	assert.Equal(t, ErrUnsuppAccess, err)
	_, err = streamer.Write([]byte{1})
	assert.Equal(t, ErrUnsuppAccess, err)
}

func TestNewStreamerOnNilEntryFails(t *testing.T) {
	_, err := NewStreamer(nil, 0, false)
	assert.Equal(t, ErrIdxNotExist, err)
}

package emergency

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"canod/pkg/can"
	"canod/pkg/od"
)

type fakeBus struct {
	sent []can.Frame
}

func (b *fakeBus) Connect(...any) error            { return nil }
func (b *fakeBus) Disconnect() error                { return nil }
func (b *fakeBus) Subscribe(can.FrameListener) error { return nil }
func (b *fakeBus) Send(frame can.Frame) error {
	b.sent = append(b.sent, frame)
	return nil
}

// newTestNode builds the OD entries NewEMCY expects, with a history object
// sized for historyCap entries (CAP).
func newTestNode(t *testing.T, historyCap int) (*od.ObjectDictionary, *fakeBus) {
	t.Helper()
	dict := od.NewOD()

	_, err := dict.AddVariableType(0x1001, "Error register", od.UNSIGNED8, od.AttributeSdoR, "0x0")
	assert.Nil(t, err)

	_, err = dict.AddVariableType(0x1014, "COB-ID EMCY", od.UNSIGNED32, od.AttributeSdoRw, "0x80")
	assert.Nil(t, err)

	_, err = dict.AddVariableType(0x1015, "Inhibit time EMCY", od.UNSIGNED16, od.AttributeSdoRw, "0x0")
	assert.Nil(t, err)

	history := od.NewArray(uint8(historyCap + 1))
	_, err = history.AddSubObject(0, "Number of errors", od.UNSIGNED8, od.AttributeSdoR, "0x0")
	assert.Nil(t, err)
	for i := 1; i <= historyCap; i++ {
		_, err = history.AddSubObject(uint8(i), fmt.Sprintf("Standard error field %d", i), od.UNSIGNED32, od.AttributeSdoR, "0x0")
		assert.Nil(t, err)
	}
	dict.AddVariableList(0x1003, "Pre-defined error field", history)

	_, err = dict.AddVariableType(0x1FFF, "Error status bits", od.OCTET_STRING, od.AttributeSdoRw, "0x00")
	assert.Nil(t, err)

	return dict, &fakeBus{}
}

func newTestEMCY(t *testing.T, nodeId uint8, historyCap int, inhibit100us uint16) (*EMCY, *od.ObjectDictionary, *fakeBus) {
	t.Helper()
	dict, bus := newTestNode(t, historyCap)
	bm := can.NewBusManager(bus)

	assert.Nil(t, dict.Index(0x1015).PutUint16(0, inhibit100us, true))

	emcy, err := NewEMCY(
		bm, nil, nodeId, DefaultConfig(),
		dict.Index(0x1001),
		dict.Index(0x1014),
		dict.Index(0x1015),
		dict.Index(0x1003),
		dict.Index(0x1FFF),
	)
	assert.Nil(t, err)
	return emcy, dict, bus
}

// Scenario 3: producer CAN-ID reconfiguration via OD 0x1014.
func TestCobIdReconfiguration(t *testing.T) {
	emcy, dict, _ := newTestEMCY(t, 5, 6, 0)
	assert.True(t, emcy.ProducerEnabled())

	write := func(value uint32) error {
		streamer, err := dict.Streamer(0x1014, 0, false)
		assert.Nil(t, err)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, value)
		_, err = streamer.Write(buf)
		return err
	}

	// ID changed while enabled must be rejected.
	err := write(0x00000086)
	assert.Equal(t, od.ErrInvalidValue, err)
	assert.True(t, emcy.ProducerEnabled())

	// Disabling first is always accepted.
	err = write(0x80000086)
	assert.Nil(t, err)
	assert.False(t, emcy.ProducerEnabled())

	// Re-enabling at the new ID succeeds once disabled.
	err = write(0x00000085)
	assert.Nil(t, err)
	assert.True(t, emcy.ProducerEnabled())
}

// Scenario 4: emergency edge produces a correctly laid out CAN frame.
func TestEmergencyEdgeFrameLayout(t *testing.T) {
	emcy, _, bus := newTestEMCY(t, 1, 6, 0)

	emcy.Error(true, 0x11, 0x5000, 0xDEADBEEF)
	emcy.Process(true, 0, nil)

	assert.Equal(t, 1, len(bus.sent))
	frame := bus.sent[0]
	assert.Equal(t, [8]byte{0x00, 0x50, 0x01, 0x11, 0xEF, 0xBE, 0xAD, 0xDE}, frame.Data)
}

// Scenario 5: FIFO overflow at CAP=2, inhibit=0, with annotation and recovery.
func TestOverflowRecoverySequence(t *testing.T) {
	emcy, _, bus := newTestEMCY(t, 1, 2, 0)

	emcy.Error(true, 0, 0x1000, 0)
	emcy.Error(true, 1, 0x1000, 0)
	// FIFO is now full (CAP=2); this third raise must overflow, not queue.
	emcy.Error(true, 2, 0x1000, 0)
	assert.Equal(t, overflowPending, emcy.fifo.overflow)

	emcy.Process(true, 0, nil) // drains bit 0, detects overflow, queues buffer-full report
	assert.Equal(t, overflowReported, emcy.fifo.overflow)
	assert.Equal(t, 1, len(bus.sent))
	assert.Equal(t, byte(0), bus.sent[0].Data[3])

	emcy.Process(true, 0, nil) // drains bit 1
	assert.Equal(t, 2, len(bus.sent))
	assert.Equal(t, byte(1), bus.sent[1].Data[3])

	// Drains the buffer-full report; the FIFO is then empty, so the same call
	// clears the overflow state and queues the clearing report.
	emcy.Process(true, 0, nil)
	assert.Equal(t, 3, len(bus.sent))
	assert.Equal(t, byte(EmEmergencyBufferFull), bus.sent[2].Data[3])
	assert.Equal(t, overflowNone, emcy.fifo.overflow)
	assert.False(t, emcy.fifo.empty())

	// Draining the clearing report that ErrorReset queued on recovery.
	emcy.Process(true, 0, nil)
	assert.Equal(t, 4, len(bus.sent))
	assert.Equal(t, byte(EmEmergencyBufferFull), bus.sent[3].Data[3])
	assert.Equal(t, uint16(ErrNoError), binary.LittleEndian.Uint16(bus.sent[3].Data[0:2]))
}

// Scenario 6: self reflection invokes the consumer callback for own emergencies.
func TestSelfReflectionCallsConsumerCallback(t *testing.T) {
	emcy, _, _ := newTestEMCY(t, 3, 6, 0)

	type received struct {
		ident, errorCode  uint16
		errorReg, errorBit byte
		infoCode           uint32
	}
	var got *received
	emcy.SetCallback(func(ident uint16, errorCode uint16, errorRegister byte, errorBit byte, infoCode uint32) {
		got = &received{ident, errorCode, errorRegister, errorBit, infoCode}
	})

	emcy.Error(true, 5, 0x2100, 42)
	emcy.Process(true, 0, nil)

	assert.NotNil(t, got)
	assert.Equal(t, uint16(0), got.ident)
	assert.Equal(t, uint16(0x2100), got.errorCode)
	assert.Equal(t, byte(5), got.errorBit)
	assert.Equal(t, uint32(42), got.infoCode)
}

func TestErrorIsIdempotentOnDuplicateEdges(t *testing.T) {
	emcy, _, bus := newTestEMCY(t, 2, 6, 0)

	emcy.Error(true, 3, 0x2000, 0)
	emcy.Error(true, 3, 0x2000, 0) // duplicate raise, must not enqueue twice
	emcy.Process(true, 0, nil)
	assert.Equal(t, 1, len(bus.sent))

	emcy.Error(false, 3, 0, 0)
	emcy.Error(false, 3, 0, 0) // duplicate clear, must not enqueue twice
	emcy.Process(true, 0, nil)
	assert.Equal(t, 2, len(bus.sent))
}

// Scenario 7: a node-specific EMCY frame (CAN-ID 0x80+nodeId) reaches the
// consumer callback through the bus manager's masked subscription, not an
// exact-match one — NewEMCY subscribes at ident 0x80 mask 0x780 so any
// producer in the 0x81-0xFF range is accepted.
func TestConsumerDispatchThroughBusManagerMask(t *testing.T) {
	dict, bus := newTestNode(t, 6)
	bm := can.NewBusManager(bus)
	emcy, err := NewEMCY(
		bm, nil, 9, DefaultConfig(),
		dict.Index(0x1001),
		dict.Index(0x1014),
		dict.Index(0x1015),
		dict.Index(0x1003),
		dict.Index(0x1FFF),
	)
	assert.Nil(t, err)

	var got bool
	emcy.SetCallback(func(ident, errorCode uint16, errorRegister, errorBit byte, infoCode uint32) {
		got = true
	})

	frame := can.NewFrame(0x85, 0, 8)
	binary.LittleEndian.PutUint16(frame.Data[0:2], 0x2100)
	frame.Data[2] = 0x01
	frame.Data[3] = 0x07
	bm.Handle(frame)

	assert.True(t, got, "EMCY consumer callback should fire for a frame delivered through the masked bus manager subscription")
}

func TestHistoryObjectReadBack(t *testing.T) {
	emcy, _, _ := newTestEMCY(t, 3, 6, 0)

	emcy.Error(true, 1, 0x2000, 0)
	emcy.Error(true, 2, 0x3000, 0)

	countBuf := make([]byte, 1)
	n, err := readEntry1003(&od.Stream{Object: emcy, Subindex: 0}, countBuf)
	assert.Nil(t, err)
	assert.Equal(t, uint16(1), n)
	assert.Equal(t, byte(2), countBuf[0])

	mostRecent := make([]byte, 4)
	_, err = readEntry1003(&od.Stream{Object: emcy, Subindex: 1}, mostRecent)
	assert.Nil(t, err)
	assert.Equal(t, byte(2), mostRecent[3]) // errorBit of the most recent report

	clearBuf := []byte{0}
	_, err = writeEntry1003(&od.Stream{Object: emcy, Subindex: 0}, clearBuf)
	assert.Nil(t, err)
	assert.Equal(t, 0, emcy.fifo.historyCount)
}

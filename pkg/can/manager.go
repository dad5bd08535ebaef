package can

import (
	"log/slog"
	"sync"
)

// MaxCanId is the largest standard (11-bit) CAN identifier.
const MaxCanId = 0x7FF

type subscriber struct {
	id       uint64
	ident    uint32
	mask     uint32
	rtr      bool
	callback FrameListener
}

// matches reports whether canId (already masked to 11 bits) falls within
// this subscription's (ident, mask) pair, mirroring how a real CAN
// controller's acceptance filter accepts canId&mask == ident&mask.
func (s subscriber) matches(canId uint32) bool {
	return canId&s.mask == s.ident&s.mask
}

// BusManager wraps a [Bus] and is used by the CANopen stack to dispatch
// received frames to interested subscribers by CAN-ID (with an acceptance
// mask, so a single subscription can span a range of node-specific IDs) and
// to track the driver's current bus error status.
type BusManager struct {
	logger *slog.Logger
	mu     sync.Mutex
	bus    Bus
	// listeners holds every live subscription; Handle walks it applying each
	// subscriber's mask. The stack only ever has a handful of live
	// subscriptions (NMT, SYNC, SDO, EMCY, ...) so a linear scan beats the
	// bookkeeping of a mask-aware trie for no measurable cost.
	listeners []subscriber
	nextSubId uint64
	canError  uint16
}

// Handle implements [FrameListener]. It is called by the underlying [Bus]
// for every received frame and dispatches it to every subscriber whose
// (ident, mask) accepts the frame's CAN-ID. Handle must not block.
func (bm *BusManager) Handle(frame Frame) {
	canId := frame.ID & CanSffMask

	bm.mu.Lock()
	var matched []FrameListener
	for _, sub := range bm.listeners {
		if sub.matches(canId) {
			matched = append(matched, sub.callback)
		}
	}
	bm.mu.Unlock()

	for _, callback := range matched {
		callback.Handle(frame)
	}
}

// SetBus replaces the underlying bus driver.
func (bm *BusManager) SetBus(bus Bus) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.bus = bus
}

// Bus returns the currently configured bus driver.
func (bm *BusManager) Bus() Bus {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.bus
}

// Send transmits a frame on the bus.
func (bm *BusManager) Send(frame Frame) error {
	err := bm.bus.Send(frame)
	if err != nil {
		bm.logger.Warn("error sending frame", "err", err)
	}
	return err
}

// SetError updates the driver bus-error status bitmask. A real driver
// backend calls this whenever it observes a change in controller state
// (warning, passive, bus-off, overflow, ...); the CAN Error Monitor reads it
// back via Error to detect transitions.
func (bm *BusManager) SetError(status uint16) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.canError = status
}

// Subscribe registers callback for frames whose CAN-ID accepts (ident, mask)
// — a bit clear in mask means "don't care" for that bit of the ID, so a
// consumer can listen across a whole node-ID range (e.g. ident 0x80, mask
// 0x780 for the EMCY producer range 0x81-0xFF) with a single subscription.
// mask 0x7FF requests an exact match on ident. It returns a cancel function
// that removes the subscription.
func (bm *BusManager) Subscribe(ident uint32, mask uint32, rtr bool, callback FrameListener) (cancel func(), err error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bm.nextSubId++
	subId := bm.nextSubId
	bm.listeners = append(bm.listeners, subscriber{
		id:       subId,
		ident:    ident & CanSffMask,
		mask:     mask & CanSffMask,
		rtr:      rtr,
		callback: callback,
	})

	cancel = func() {
		bm.mu.Lock()
		defer bm.mu.Unlock()
		for i, sub := range bm.listeners {
			if sub.id == subId {
				bm.listeners = append(bm.listeners[:i], bm.listeners[i+1:]...)
				return
			}
		}
	}
	return cancel, nil
}

// Error returns the last known driver bus-error status bitmask.
func (bm *BusManager) Error() uint16 {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.canError
}

// NewBusManager creates a manager around the given bus driver.
func NewBusManager(bus Bus) *BusManager {
	return &BusManager{
		bus:    bus,
		logger: slog.Default().With("service", "[CAN]"),
	}
}

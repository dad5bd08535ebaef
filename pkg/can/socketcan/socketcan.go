// Package socketcan wires the CAN driver interface to a real Linux
// SocketCAN device using brutella/can.
package socketcan

import (
	sockcan "github.com/brutella/can"

	"canod/pkg/can"
)

func init() {
	can.RegisterInterface("socketcan", NewSocketCanBus)
}

// Bus implements [can.Bus] on top of a real Linux SocketCAN interface.
type Bus struct {
	bus        *sockcan.Bus
	rxCallback can.FrameListener
}

// Connect implements [can.Bus]
func (b *Bus) Connect(...any) error {
	go b.bus.ConnectAndPublish()
	return nil
}

// Disconnect implements [can.Bus]
func (b *Bus) Disconnect() error {
	return b.bus.Disconnect()
}

// Send implements [can.Bus]
func (b *Bus) Send(frame can.Frame) error {
	return b.bus.Publish(sockcan.Frame{
		ID:     frame.ID,
		Length: frame.DLC,
		Flags:  frame.Flags,
		Data:   frame.Data,
	})
}

// Subscribe implements [can.Bus]
func (b *Bus) Subscribe(rxCallback can.FrameListener) error {
	b.rxCallback = rxCallback
	// brutella/can defines a "Handle" interface for handling received CAN frames
	b.bus.Subscribe(b)
	return nil
}

// Handle is brutella/can's callback interface, adapting its frame type to ours.
func (b *Bus) Handle(frame sockcan.Frame) {
	b.rxCallback.Handle(can.Frame{ID: frame.ID, DLC: frame.Length, Flags: frame.Flags, Data: frame.Data})
}

// NewSocketCanBus opens interface name (e.g. "can0") for use with brutella/can.
func NewSocketCanBus(name string) (can.Bus, error) {
	bus, err := sockcan.NewBusForInterfaceWithName(name)
	if err != nil {
		return nil, err
	}
	return &Bus{bus: bus}, nil
}

// Command canod-node boots a minimal CANopen node: it loads an EDS file,
// wires a socketcan bus through the shared BusManager, starts the emergency
// producer/consumer, and runs its process loop until interrupted.
package main

import (
	"flag"
	"log/slog"
	"time"

	log "github.com/sirupsen/logrus"

	"canod/pkg/can"
	"canod/pkg/can/socketcan"
	"canod/pkg/emergency"
	"canod/pkg/od"
)

var (
	defaultInterface = "can0"
	defaultNodeId    = 0x20
)

func main() {
	log.SetLevel(log.InfoLevel)

	iface := flag.String("i", defaultInterface, "socketcan interface, e.g. can0, vcan0")
	nodeId := flag.Int("n", defaultNodeId, "node id")
	edsPath := flag.String("p", "", "EDS file path")
	period := flag.Duration("t", 10*time.Millisecond, "process loop period")
	flag.Parse()

	if *edsPath == "" {
		log.Fatal("an EDS file path is required, see -p")
	}

	dict, err := od.Parse(*edsPath, uint8(*nodeId))
	if err != nil {
		log.WithError(err).Fatal("failed to parse EDS file")
	}

	bus, err := socketcan.NewSocketCanBus(*iface)
	if err != nil {
		log.WithError(err).Fatalf("failed to open socketcan interface %s", *iface)
	}
	busManager := can.NewBusManager(bus)
	if err := bus.Subscribe(busManager); err != nil {
		log.WithError(err).Fatal("failed to subscribe bus manager")
	}
	if err := bus.Connect(); err != nil {
		log.WithError(err).Fatalf("failed to connect to %s", *iface)
	}
	defer bus.Disconnect()

	emcy, err := emergency.NewEMCY(
		busManager,
		slog.Default(),
		uint8(*nodeId),
		emergency.DefaultConfig(),
		dict.Index(0x1001),
		dict.Index(0x1014),
		dict.Index(0x1015),
		dict.Index(0x1003),
		dict.Index(0x1FFF),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize emergency subsystem")
	}
	emcy.SetCallback(func(ident, errorCode uint16, errorRegister, errorBit byte, infoCode uint32) {
		log.WithFields(log.Fields{
			"ident":         ident,
			"errorCode":     errorCode,
			"errorRegister": errorRegister,
			"errorBit":      errorBit,
			"infoCode":      infoCode,
		}).Info("emergency event")
	})

	log.Infof("node %#x started on %s, reporting a generic error to exercise the producer", *nodeId, *iface)
	emcy.ErrorReport(emergency.EmGenericError, emergency.ErrGeneric, 0)

	ticker := time.NewTicker(*period)
	defer ticker.Stop()
	last := time.Now()
	for range ticker.C {
		now := time.Now()
		emcy.Process(true, uint32(now.Sub(last).Microseconds()), nil)
		last = now
	}
}

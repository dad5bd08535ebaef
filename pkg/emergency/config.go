package emergency

// Config describes which optional parts of the emergency subsystem are
// compiled into a given node, mirroring the CO_CONFIG_EM feature flags of the
// reference CANopen stack. A zero Config enables nothing: producer, consumer
// and every optional extra are off.
type Config struct {
	// Producer enables transmission of EMCY messages when an error
	// condition is reported via [EMCY.Error].
	Producer bool
	// ProducerConfigurable exposes OD 0x1014 (COB-ID EMCY) for runtime
	// reconfiguration of the producer's CAN-ID and enable state.
	ProducerConfigurable bool
	// ProducerInhibit enables the inhibit-time-based FIFO drain via OD
	// 0x1015, rate-limiting how often EMCY frames are actually sent.
	ProducerInhibit bool
	// History enables OD 0x1003 (pre-defined error field).
	History bool
	// StatusBits enables the vendor-specific error-status-bitmap OD entry.
	StatusBits bool
	// Consumer enables dispatching received EMCY frames to the registered
	// callback.
	Consumer bool
	// CallbackPreProcess, when set, is invoked synchronously from Error
	// after the status bit has changed and before the FIFO is touched,
	// letting the application observe the report before it is queued. It
	// cannot stop the report from being queued.
	CallbackPreProcess func(errorBit byte, errorCode uint16, infoCode uint32)
	// TimerNext, when true, lets Process report back the time until the
	// next inhibit-timer deadline via its timerNextUs out-parameter.
	TimerNext bool
}

// DefaultConfig returns the configuration used when none is supplied:
// producer, configurable COB-ID, inhibit timing, history and consumer all
// enabled — matching a typical CiA 301 device.
func DefaultConfig() Config {
	return Config{
		Producer:              true,
		ProducerConfigurable:  true,
		ProducerInhibit:       true,
		History:               true,
		StatusBits:            true,
		Consumer:              true,
		TimerNext:             true,
	}
}

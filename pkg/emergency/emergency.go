package emergency

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"

	"canod/pkg/can"
	"canod/pkg/od"
)

const EmergencyErrorStatusBits = 80
const ServiceId = 0x80

var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrOdParameters    = errors.New("error in object dictionary parameters")
)

// Error register values
const (
	ErrRegGeneric       = 0x01 // bit 0 - generic error
	ErrRegCurrent       = 0x02 // bit 1 - current
	ErrRegVoltage       = 0x04 // bit 2 - voltage
	ErrRegTemperature   = 0x08 // bit 3 - temperature
	ErrRegCommunication = 0x10 // bit 4 - communication error
	ErrRegDevProfile    = 0x20 // bit 5 - device profile specific
	ErrRegReserved      = 0x40 // bit 6 - reserved (always 0)
	ErrRegManufacturer  = 0x80 // bit 7 - manufacturer specific
)

// Error codes
const (
	ErrNoError          = 0x0000
	ErrGeneric          = 0x1000
	ErrCurrent          = 0x2000
	ErrCurrentInput     = 0x2100
	ErrCurrentInside    = 0x2200
	ErrCurrentOutput    = 0x2300
	ErrVoltage          = 0x3000
	ErrVoltageMains     = 0x3100
	ErrVoltageInside    = 0x3200
	ErrVoltageOutput    = 0x3300
	ErrTemperature      = 0x4000
	ErrTempAmbient      = 0x4100
	ErrTempDevice       = 0x4200
	ErrHardware         = 0x5000
	ErrSoftwareDevice   = 0x6000
	ErrSoftwareInternal = 0x6100
	ErrSoftwareUser     = 0x6200
	ErrDataSet          = 0x6300
	ErrAdditionalModul  = 0x7000
	ErrMonitoring       = 0x8000
	ErrCommunication    = 0x8100
	ErrCanOverrun       = 0x8110
	ErrCanPassive       = 0x8120
	ErrHeartbeat        = 0x8130
	ErrBusOffRecovered  = 0x8140
	ErrCanIdCollision   = 0x8150
	ErrProtocolError    = 0x8200
	ErrPdoLength        = 0x8210
	ErrPdoLengthExc     = 0x8220
	ErrDamMpdo          = 0x8230
	ErrSyncDataLength   = 0x8240
	ErrRpdoTimeout      = 0x8250
	ErrExternalError    = 0x9000
	ErrAdditionalFunc   = 0xF000
	ErrDeviceSpecific   = 0xFF00
	Err401OutCurHi      = 0x2310
	Err401OutShorted    = 0x2320
	Err401OutLoadDump   = 0x2330
	Err401InVoltHi      = 0x3110
	Err401InVoltLow     = 0x3120
	Err401InternVoltHi  = 0x3210
	Err401InternVoltLow = 0x3220
	Err401OutVoltHigh   = 0x3310
	Err401OutVoltLow    = 0x3320
)

var errorCodeDescriptionMap = map[int]string{
	ErrNoError:          "Reset or No Error",
	ErrGeneric:          "Generic Error",
	ErrCurrent:          "Current",
	ErrCurrentInput:     "Current, device input side",
	ErrCurrentInside:    "Current inside the device",
	ErrCurrentOutput:    "Current, device output side",
	ErrVoltage:          "Voltage",
	ErrVoltageMains:     "Mains Voltage",
	ErrVoltageInside:    "Voltage inside the device",
	ErrVoltageOutput:    "Output Voltage",
	ErrTemperature:      "Temperature",
	ErrTempAmbient:      "Ambient Temperature",
	ErrTempDevice:       "Device Temperature",
	ErrHardware:         "Device Hardware",
	ErrSoftwareDevice:   "Device Software",
	ErrSoftwareInternal: "Internal Software",
	ErrSoftwareUser:     "User Software",
	ErrDataSet:          "Data Set",
	ErrAdditionalModul:  "Additional Modules",
	ErrMonitoring:       "Monitoring",
	ErrCommunication:    "Communication",
	ErrCanOverrun:       "CAN Overrun (Objects lost)",
	ErrCanPassive:       "CAN in Error Passive Mode",
	ErrHeartbeat:        "Life Guard Error or Heartbeat Error",
	ErrBusOffRecovered:  "Recovered from bus off",
	ErrCanIdCollision:   "CAN-ID collision",
	ErrProtocolError:    "Protocol Error",
	ErrPdoLength:        "PDO not processed due to length error",
	ErrPdoLengthExc:     "PDO length exceeded",
	ErrDamMpdo:          "DAM MPDO not processed, destination object not available",
	ErrSyncDataLength:   "Unexpected SYNC data length",
	ErrRpdoTimeout:      "RPDO timeout",
	ErrExternalError:    "External Error",
	ErrAdditionalFunc:   "Additional Functions",
	ErrDeviceSpecific:   "Device specific",
	Err401OutCurHi:      "DS401, Current at outputs too high (overload)",
	Err401OutShorted:    "DS401, Short circuit at outputs",
	Err401OutLoadDump:   "DS401, Load dump at outputs",
	Err401InVoltHi:      "DS401, Input voltage too high",
	Err401InVoltLow:     "DS401, Input voltage too low",
	Err401InternVoltHi:  "DS401, Internal voltage too high",
	Err401InternVoltLow: "DS401, Internal voltage too low",
	Err401OutVoltHigh:   "DS401, Output voltage too high",
	Err401OutVoltLow:    "DS401, Output voltage too low",
}

// Error status bits
const (
	EmNoError                 = 0x00
	EmCanBusWarning           = 0x01
	EmRxMsgWrongLength        = 0x02
	EmRxMsgOverflow           = 0x03
	EmRPDOWrongLength         = 0x04
	EmRPDOOverflow            = 0x05
	EmCanRXBusPassive         = 0x06
	EmCanTXBusPassive         = 0x07
	EmNMTWrongCommand         = 0x08
	EmTimeTimeout             = 0x09
	Em0AUnused                = 0x0A
	Em0BUnused                = 0x0B
	Em0CUnused                = 0x0C
	Em0DUnused                = 0x0D
	Em0EUnused                = 0x0E
	Em0FUnused                = 0x0F
	Em10Unused                = 0x10
	Em11Unused                = 0x11
	EmCanTXBusOff             = 0x12
	EmCanRXBOverflow          = 0x13
	EmCanTXOverflow           = 0x14
	EmTPDOOutsideWindow       = 0x15
	Em16Unused                = 0x16
	EmRPDOTimeOut             = 0x17
	EmSyncTimeOut             = 0x18
	EmSyncLength              = 0x19
	EmPDOWrongMapping         = 0x1A
	EmHeartbeatConsumer       = 0x1B
	EmHBConsumerRemoteReset   = 0x1C
	Em1DUnused                = 0x1D
	Em1EUnused                = 0x1E
	Em1FUnused                = 0x1F
	EmEmergencyBufferFull     = 0x20
	Em21Unused                = 0x21
	EmMicrocontrollerReset    = 0x22
	Em23Unused                = 0x23
	Em24Unused                = 0x24
	Em25Unused                = 0x25
	Em26Unused                = 0x26
	EmNonVolatileAutoSave     = 0x27
	EmWrongErrorReport        = 0x28
	EmISRTimerOverflow        = 0x29
	EmMemoryAllocationError   = 0x2A
	EmGenericError            = 0x2B
	EmGenericSoftwareError    = 0x2C
	EmInconsistentObjectDict  = 0x2D
	EmCalculationOfParameters = 0x2E
	EmNonVolatileMemory       = 0x2F
	EmManufacturerStart       = 0x30
	EmManufacturerEnd         = EmergencyErrorStatusBits - 1
)

var errorStatusMap = map[uint8]string{
	EmNoError:                 "Error Reset or No Error",
	EmCanBusWarning:           "CAN bus warning limit reached",
	EmRxMsgWrongLength:        "Wrong data length of the received CAN message",
	EmRxMsgOverflow:           "Previous received CAN message wasn't processed yet",
	EmRPDOWrongLength:         "Wrong data length of received PDO",
	EmRPDOOverflow:            "Previous received PDO wasn't processed yet",
	EmCanRXBusPassive:         "CAN receive bus is passive",
	EmCanTXBusPassive:         "CAN transmit bus is passive",
	EmNMTWrongCommand:         "Wrong NMT command received",
	EmTimeTimeout:             "TIME message timeout",
	Em0AUnused:                "(unused)",
	Em0BUnused:                "(unused)",
	Em0CUnused:                "(unused)",
	Em0DUnused:                "(unused)",
	Em0EUnused:                "(unused)",
	Em0FUnused:                "(unused)",
	Em10Unused:                "(unused)",
	Em11Unused:                "(unused)",
	EmCanTXBusOff:             "CAN transmit bus is off",
	EmCanRXBOverflow:          "CAN module receive buffer has overflowed",
	EmCanTXOverflow:           "CAN transmit buffer has overflowed",
	EmTPDOOutsideWindow:       "TPDO is outside SYNC window",
	Em16Unused:                "(unused)",
	EmRPDOTimeOut:             "RPDO message timeout",
	EmSyncTimeOut:             "SYNC message timeout",
	EmSyncLength:              "Unexpected SYNC data length",
	EmPDOWrongMapping:         "Error with PDO mapping",
	EmHeartbeatConsumer:       "Heartbeat consumer timeout",
	EmHBConsumerRemoteReset:   "Heartbeat consumer detected remote node reset",
	Em1DUnused:                "(unused)",
	Em1EUnused:                "(unused)",
	Em1FUnused:                "(unused)",
	EmEmergencyBufferFull:     "Emergency buffer is full, Emergency message wasn't sent",
	Em21Unused:                "(unused)",
	EmMicrocontrollerReset:    "Microcontroller has just started",
	Em23Unused:                "(unused)",
	Em24Unused:                "(unused)",
	Em25Unused:                "(unused)",
	Em26Unused:                "(unused)",
	EmNonVolatileAutoSave:     "Automatic store to non-volatile memory failed",
	EmWrongErrorReport:        "Wrong parameters to ErrorReport function",
	EmISRTimerOverflow:        "Timer task has overflowed",
	EmMemoryAllocationError:   "Unable to allocate memory for objects",
	EmGenericError:            "Generic error, test usage",
	EmGenericSoftwareError:    "Software error",
	EmInconsistentObjectDict:  "Object dictionary does not match the software",
	EmCalculationOfParameters: "Error in calculation of device parameters",
	EmNonVolatileMemory:       "Error with access to non-volatile device memory",
}

func getErrorStatusDescription(errorStatus uint8) string {
	description, ok := errorStatusMap[errorStatus]
	switch {
	case ok:
		return description
	case errorStatus >= EmManufacturerStart && errorStatus <= EmManufacturerEnd:
		return "Manufacturer error"
	default:
		return "Invalid or not implemented error status"
	}
}

func getErrorCodeDescription(errorCode int) string {
	description, ok := errorCodeDescriptionMap[errorCode]
	if ok {
		return description
	}
	return "Invalid or not implemented error code"
}

// EMCYRxCallback is invoked whenever an emergency message is received,
// including the node's own messages right after their transmission was
// requested (whether or not the send succeeded).
type EMCYRxCallback func(ident uint16, errorCode uint16, errorRegister byte, errorBit byte, infoCode uint32)

// EMCY is the emergency producer/consumer for a single node: it keeps the
// error-status bitmap, drains the emergency FIFO at the configured inhibit
// rate, and dispatches received EMCY frames to the registered callback.
type EMCY struct {
	*can.BusManager
	logger *slog.Logger
	mu     sync.Mutex

	config Config

	nodeId      byte
	errorStatus errorStatusBitmap
	// codes holds the errorCode last reported for each currently-set status
	// bit, so the error register can be recomputed from which condition
	// classes are presently active.
	codes     [maxErrorStatusBits]uint16
	entry1001 *od.Entry
	monitor   canErrorMonitor
	txBuffer  can.Frame
	fifo      emergencyFifo

	producerEnabled bool
	producerIdent   uint16
	inhibitTimeUs   uint32 // set by writing to OD 0x1015
	inhibitTimer    uint32
	rxCallback      EMCYRxCallback
}

// Handle implements [can.FrameListener] for received EMCY frames.
func (emcy *EMCY) Handle(frame can.Frame) {
	if emcy == nil || !emcy.config.Consumer || emcy.rxCallback == nil ||
		frame.ID == 0x80 ||
		frame.DLC != 8 {
		return
	}
	errorCode := binary.LittleEndian.Uint16(frame.Data[0:2])
	infoCode := binary.LittleEndian.Uint32(frame.Data[4:8])
	emcy.rxCallback(
		uint16(frame.ID),
		errorCode,
		frame.Data[2],
		frame.Data[3],
		infoCode)
}

// Process drains the emergency FIFO at the configured inhibit rate and
// polls the CAN driver's bus-error status for transitions. It should be
// called periodically from the node's processing loop.
func (emcy *EMCY) Process(nmtIsPreOrOperational bool, timeDifferenceUs uint32, timerNextUs *uint32) {
	emcy.mu.Lock()
	defer emcy.mu.Unlock()

	canErrStatus := emcy.BusManager.Error()
	emcy.mu.Unlock()
	emcy.monitor.poll(canErrStatus, func(set bool, statusBit byte, errorCode uint16) {
		emcy.Error(set, statusBit, errorCode, 0)
	})
	emcy.mu.Lock()

	if !nmtIsPreOrOperational {
		return
	}

	// The error register (OD 0x1001) reflects the currently active status
	// bits regardless of whether this node produces EMCY frames for them,
	// so a consumer-only or history-only node still reports it.
	errorRegister := emcy.computeErrorRegister()
	if emcy.entry1001 != nil {
		_ = emcy.entry1001.PutUint8(0, byte(errorRegister), true)
	}

	if !emcy.config.Producer {
		return
	}

	if emcy.config.ProducerInhibit {
		if emcy.inhibitTimer < emcy.inhibitTimeUs {
			emcy.inhibitTimer += timeDifferenceUs
		}
		if emcy.inhibitTimer < emcy.inhibitTimeUs {
			if timerNextUs != nil && emcy.config.TimerNext {
				diff := emcy.inhibitTimeUs - emcy.inhibitTimer
				if *timerNextUs > diff {
					*timerNextUs = diff
				}
			}
			return
		}
	}
	if emcy.fifo.empty() || !emcy.producerEnabled {
		return
	}
	emcy.inhibitTimer = 0

	msg, ok := emcy.fifo.pop()
	if !ok {
		return
	}
	msg.msg |= uint32(errorRegister) << 16
	binary.LittleEndian.PutUint32(emcy.txBuffer.Data[:4], msg.msg)
	binary.LittleEndian.PutUint32(emcy.txBuffer.Data[4:8], msg.info)
	emcy.mu.Unlock()
	_ = emcy.Send(emcy.txBuffer)
	if emcy.rxCallback != nil {
		emcy.rxCallback(
			0,
			uint16(msg.msg),
			byte(errorRegister),
			byte(msg.msg>>24),
			msg.info,
		)
	}
	emcy.mu.Lock()

	if emcy.fifo.overflow == overflowPending {
		emcy.fifo.overflow = overflowReported
		emcy.mu.Unlock()
		emcy.ErrorReport(EmEmergencyBufferFull, ErrGeneric, 0)
		emcy.mu.Lock()
	} else if emcy.fifo.overflow == overflowReported && emcy.fifo.empty() {
		emcy.fifo.overflow = overflowNone
		emcy.mu.Unlock()
		emcy.ErrorReset(EmEmergencyBufferFull, 0)
		emcy.mu.Lock()
	}
}

// registerBitForCode maps an error code to the CiA 301 error-register class
// it belongs to, beyond the generic bit that is set whenever any condition
// is active.
func registerBitForCode(code uint16) byte {
	switch {
	case code >= 0x2000 && code < 0x3000:
		return ErrRegCurrent
	case code >= 0x3000 && code < 0x4000:
		return ErrRegVoltage
	case code >= 0x4000 && code < 0x5000:
		return ErrRegTemperature
	case code >= 0x8000 && code < 0x9000:
		return ErrRegCommunication
	case code >= 0xF000 && code < 0xFF00:
		return ErrRegDevProfile
	case code >= 0xFF00:
		return ErrRegManufacturer
	default:
		return 0
	}
}

// computeErrorRegister recomputes the OD 0x1001 error register from the
// error codes behind each currently active status bit.
func (emcy *EMCY) computeErrorRegister() byte {
	var register byte
	for bit := 0; bit < emcy.errorStatus.size(); bit++ {
		if emcy.errorStatus.test(byte(bit)) {
			register |= ErrRegGeneric
			register |= registerBitForCode(emcy.codes[bit])
		}
	}
	return register
}

// Error sets or resets an error condition. Setting an already-set bit (or
// resetting an already-clear one) is a no-op; otherwise it toggles the bit
// and, if the producer or the history is configured, enqueues the
// corresponding EMCY message for [EMCY.Process] to drain.
func (emcy *EMCY) Error(setError bool, errorBit byte, errorCode uint16, infoCode uint32) {
	emcy.mu.Lock()
	defer emcy.mu.Unlock()

	if int(errorBit) >= emcy.errorStatus.size() {
		errorBit = EmWrongErrorReport
		errorCode = ErrSoftwareInternal
		infoCode = uint32(errorBit)
	}

	if setError {
		if emcy.errorStatus.test(errorBit) {
			return
		}
	} else {
		if !emcy.errorStatus.test(errorBit) {
			return
		}
		errorCode = ErrNoError
	}
	emcy.errorStatus.set(errorBit, setError)
	if setError {
		emcy.codes[errorBit] = errorCode
	}

	if emcy.config.CallbackPreProcess != nil {
		emcy.config.CallbackPreProcess(errorBit, errorCode, infoCode)
	}

	// A history-only node (Producer: false, History: true) still records
	// the edge in the FIFO so OD 0x1003 reflects it, it just never drains
	// the FIFO onto the bus (see Process).
	if !emcy.config.Producer && !emcy.config.History {
		return
	}
	errMsg := (uint32(errorBit) << 24) | uint32(errorCode)
	emcy.fifo.push(emMessage{msg: errMsg, info: infoCode})
}

// ErrorReport logs and sets an error condition.
func (emcy *EMCY) ErrorReport(errorBit byte, errorCode uint16, infoCode uint32) {
	emcy.logger.Info("report emergency",
		"code description", getErrorCodeDescription(int(errorCode)),
		"errorCode", errorCode,
		"bit description", getErrorStatusDescription(errorBit),
		"infoCode", infoCode,
	)
	emcy.Error(true, errorBit, errorCode, infoCode)
}

// ErrorReset logs and clears an error condition.
func (emcy *EMCY) ErrorReset(errorBit byte, infoCode uint32) {
	emcy.logger.Info("reset emergency",
		"description", getErrorStatusDescription(errorBit),
		"errorBit", errorBit,
		"infoCode", infoCode,
	)
	emcy.Error(false, errorBit, ErrNoError, infoCode)
}

// IsError reports whether errorBit is currently set. An out of range bit
// is reported as set, matching the reference stack's fail-safe behavior.
func (emcy *EMCY) IsError(errorBit byte) bool {
	if emcy == nil {
		return true
	}
	emcy.mu.Lock()
	defer emcy.mu.Unlock()
	if int(errorBit) >= emcy.errorStatus.size() {
		return true
	}
	return emcy.errorStatus.test(errorBit)
}

func (emcy *EMCY) GetErrorRegister() byte {
	if emcy == nil || emcy.entry1001 == nil {
		return 0
	}
	value, err := emcy.entry1001.Uint8(0)
	if err != nil {
		return 0
	}
	return value
}

func (emcy *EMCY) ProducerEnabled() bool {
	emcy.mu.Lock()
	defer emcy.mu.Unlock()
	return emcy.producerEnabled
}

func (emcy *EMCY) SetCallback(callback EMCYRxCallback) {
	emcy.mu.Lock()
	defer emcy.mu.Unlock()
	emcy.rxCallback = callback
}

func NewEMCYForLogging(logger *slog.Logger) *EMCY {
	return &EMCY{logger: logger}
}

// NewEMCY builds an [EMCY] for nodeId, wiring the configured OD entries to
// their read/write extensions and subscribing to EMCY frames on the bus.
func NewEMCY(
	bm *can.BusManager,
	logger *slog.Logger,
	nodeId uint8,
	config Config,
	entry1001 *od.Entry,
	entry1014 *od.Entry,
	entry1015 *od.Entry,
	entry1003 *od.Entry,
	entryStatusBits *od.Entry,
) (*EMCY, error) {
	if entry1001 == nil || entry1014 == nil || bm == nil ||
		nodeId < 1 || nodeId > 127 ||
		entry1003 == nil {
		return nil, ErrIllegalArgument
	}

	if logger == nil {
		logger = slog.Default()
	}
	emcy := &EMCY{BusManager: bm, logger: logger.With("service", "[EMCY]"), config: config, entry1001: entry1001}
	emcy.errorStatus = newErrorStatusBitmap(EmergencyErrorStatusBits)

	fifoSize := entry1003.SubCount()
	if fifoSize > 0 {
		fifoSize--
	}
	emcy.fifo = newEmergencyFifo(fifoSize)

	cobIdEmergency, err := entry1014.Uint32(0)
	if err != nil || (cobIdEmergency&0x7FFFF800) != 0 {
		if err != nil {
			return nil, ErrOdParameters
		}
	}
	producerCanId := cobIdEmergency & 0x7FF
	emcy.producerEnabled = (cobIdEmergency&0x80000000) == 0 && producerCanId != 0
	if config.ProducerConfigurable {
		entry1014.AddExtension(emcy, readEntry1014, writeEntry1014)
	}
	emcy.producerIdent = uint16(producerCanId)
	if producerCanId == uint32(ServiceId) {
		producerCanId += uint32(nodeId)
	}
	emcy.nodeId = nodeId
	emcy.txBuffer = can.NewFrame(producerCanId, 0, 8)
	emcy.inhibitTimeUs = 0
	emcy.inhibitTimer = 0
	if config.ProducerInhibit {
		inhibitTime100us, err := entry1015.Uint16(0)
		if err == nil {
			emcy.inhibitTimeUs = uint32(inhibitTime100us) * 100
			entry1015.AddExtension(emcy, od.ReadEntryDefault, writeEntry1015)
		}
	}
	if config.History {
		entry1003.AddExtension(emcy, readEntry1003, writeEntry1003)
	}
	if config.StatusBits && entryStatusBits != nil {
		entryStatusBits.AddExtension(emcy, readEntryStatusBits, writeEntryStatusBits)
	}
	if !config.Consumer {
		return emcy, nil
	}
	_, err = emcy.Subscribe(uint32(ServiceId), 0x780, false, emcy)
	return emcy, err
}

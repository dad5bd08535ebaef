package emergency

import "canod/pkg/can"

// canErrorMonitor watches the CAN driver's bus-error status bitmask for
// transitions and maps each one to the corresponding standard emergency
// error-status bit and error code, as described by CiA 301 annex for CAN
// physical layer errors. It only reacts to edges (bits that changed since
// the previous call), not to the absolute status.
type canErrorMonitor struct {
	previous uint16
}

// transition describes one bus-status bit mapped to the emergency condition
// that should be reported when it changes.
type transition struct {
	mask      uint16
	statusBit byte
	errorCode uint16
}

var canErrorTransitions = []transition{
	{can.CanErrorTxWarning | can.CanErrorRxWarning, EmCanBusWarning, ErrNoError},
	{can.CanErrorTxPassive, EmCanTXBusPassive, ErrCanPassive},
	{can.CanErrorTxBusOff, EmCanTXBusOff, ErrBusOffRecovered},
	{can.CanErrorTxOverflow, EmCanTXOverflow, ErrCanOverrun},
	{can.CanErrorPdoLate, EmTPDOOutsideWindow, ErrCommunication},
	{can.CanErrorRxPassive, EmCanRXBusPassive, ErrCanPassive},
	{can.CanErrorRxOverflow, EmCanRXBOverflow, ErrCanOverrun},
}

// poll compares status against the last observed value and invokes report
// for each bit whose state changed, with set indicating the bit's new
// state. It returns the changed mask for diagnostic purposes.
func (m *canErrorMonitor) poll(status uint16, report func(set bool, statusBit byte, errorCode uint16)) uint16 {
	changed := status ^ m.previous
	if changed == 0 {
		return 0
	}
	m.previous = status
	for _, t := range canErrorTransitions {
		if changed&t.mask != 0 {
			report(status&t.mask != 0, t.statusBit, t.errorCode)
		}
	}
	return changed
}

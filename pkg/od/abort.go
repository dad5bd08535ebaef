package od

import "fmt"

// SDOAbortCode is the 32 bit abort code sent by an SDO server in response to
// a failed download/upload, as defined by CiA 301.
type SDOAbortCode uint32

const (
	AbortToggleBit         SDOAbortCode = 0x05030000
	AbortTimeout           SDOAbortCode = 0x05040000
	AbortCmd               SDOAbortCode = 0x05040001
	AbortBlockSize         SDOAbortCode = 0x05040002
	AbortSeqNum            SDOAbortCode = 0x05040003
	AbortCRC               SDOAbortCode = 0x05040004
	AbortOutOfMem          SDOAbortCode = 0x05040005
	AbortUnsupportedAccess SDOAbortCode = 0x06010000
	AbortWriteOnly         SDOAbortCode = 0x06010001
	AbortReadOnly          SDOAbortCode = 0x06010002
	AbortNotExist          SDOAbortCode = 0x06020000
	AbortNoMap             SDOAbortCode = 0x06040041
	AbortMapLen            SDOAbortCode = 0x06040042
	AbortParamIncompat     SDOAbortCode = 0x06040043
	AbortDeviceIncompat    SDOAbortCode = 0x06040047
	AbortHardware          SDOAbortCode = 0x06060000
	AbortTypeMismatch      SDOAbortCode = 0x06070010
	AbortDataLong          SDOAbortCode = 0x06070012
	AbortDataShort         SDOAbortCode = 0x06070013
	AbortSubUnknown        SDOAbortCode = 0x06090011
	AbortInvalidValue      SDOAbortCode = 0x06090030
	AbortValueHigh         SDOAbortCode = 0x06090031
	AbortValueLow          SDOAbortCode = 0x06090032
	AbortMaxLessMin        SDOAbortCode = 0x06090036
	AbortNoRessource       SDOAbortCode = 0x060A0023
	AbortGeneral           SDOAbortCode = 0x08000000
	AbortDataTransfer      SDOAbortCode = 0x08000020
	AbortDataLocalControl  SDOAbortCode = 0x08000021
	AbortDataDeviceState   SDOAbortCode = 0x08000022
	AbortDataOD            SDOAbortCode = 0x08000023
	AbortNoData            SDOAbortCode = 0x08000024
)

var abortCodeDescriptionMap = map[SDOAbortCode]string{
	AbortToggleBit:         "Toggle bit not altered",
	AbortTimeout:           "SDO protocol timed out",
	AbortCmd:               "Command specifier not valid or unknown",
	AbortBlockSize:         "Invalid block size in block mode",
	AbortSeqNum:            "Invalid sequence number in block mode",
	AbortCRC:               "CRC error (block mode only)",
	AbortOutOfMem:          "Out of memory",
	AbortUnsupportedAccess: "Unsupported access to an object",
	AbortWriteOnly:         "Attempt to read a write only object",
	AbortReadOnly:          "Attempt to write a read only object",
	AbortNotExist:          "Object does not exist in the object dictionary",
	AbortNoMap:             "Object cannot be mapped to the PDO",
	AbortMapLen:            "Num and len of object to be mapped exceeds PDO len",
	AbortParamIncompat:     "General parameter incompatibility reasons",
	AbortDeviceIncompat:    "General internal incompatibility in device",
	AbortHardware:          "Access failed due to hardware error",
	AbortTypeMismatch:      "Data type does not match, length does not match",
	AbortDataLong:          "Data type does not match, length too high",
	AbortDataShort:         "Data type does not match, length too short",
	AbortSubUnknown:        "Sub index does not exist",
	AbortInvalidValue:      "Invalid value for parameter (download only)",
	AbortValueHigh:         "Value range of parameter written too high",
	AbortValueLow:          "Value range of parameter written too low",
	AbortMaxLessMin:        "Maximum value is less than minimum value.",
	AbortNoRessource:       "Resource not available: SDO connection",
	AbortGeneral:           "General error",
	AbortDataTransfer:      "Data cannot be transferred or stored to application",
	AbortDataLocalControl:  "Data cannot be transferred because of local control",
	AbortDataDeviceState:   "Data cannot be tran. because of present device state",
	AbortDataOD:            "Object dict. not present or dynamic generation fails",
	AbortNoData:            "No data available",
}

// odToAbortMap is the total function from an internal [ODR] result code to
// its corresponding SDO abort code. Every ODR value except ErrPartial and
// ErrNo (which never reach an SDO server as a final result) has an entry;
// anything unmapped falls back to AbortDeviceIncompat.
var odToAbortMap = map[ODR]SDOAbortCode{
	ErrOutOfMem:     AbortOutOfMem,
	ErrUnsuppAccess: AbortUnsupportedAccess,
	ErrWriteOnly:    AbortWriteOnly,
	ErrReadonly:     AbortReadOnly,
	ErrIdxNotExist:  AbortNotExist,
	ErrNoMap:        AbortNoMap,
	ErrMapLen:       AbortMapLen,
	ErrParIncompat:  AbortParamIncompat,
	ErrDevIncompat:  AbortDeviceIncompat,
	ErrHw:           AbortHardware,
	ErrTypeMismatch: AbortTypeMismatch,
	ErrDataLong:     AbortDataLong,
	ErrDataShort:    AbortDataShort,
	ErrSubNotExist:  AbortSubUnknown,
	ErrInvalidValue: AbortInvalidValue,
	ErrValueHigh:    AbortValueHigh,
	ErrValueLow:     AbortValueLow,
	ErrMaxLessMin:   AbortMaxLessMin,
	ErrNoRessource:  AbortNoRessource,
	ErrGeneral:      AbortGeneral,
	ErrDataTransf:   AbortDataTransfer,
	ErrDataLocCtrl:  AbortDataLocalControl,
	ErrDataDevState: AbortDataDeviceState,
	ErrOdMissing:    AbortDataOD,
	ErrNoData:       AbortNoData,
}

// ConvertOdToSdoAbort maps an internal OD result code to the SDO abort code
// that should be sent on the wire. Unknown or non-terminal codes (ErrPartial,
// ErrNo, ...) fall back to AbortDeviceIncompat.
func ConvertOdToSdoAbort(oderr ODR) SDOAbortCode {
	abortCode, ok := odToAbortMap[oderr]
	if ok {
		return abortCode
	}
	return AbortDeviceIncompat
}

func (abort SDOAbortCode) Error() string {
	return fmt.Sprintf("x%x : %s", uint32(abort), abort.Description())
}

func (abort SDOAbortCode) Description() string {
	description, ok := abortCodeDescriptionMap[abort]
	if ok {
		return description
	}
	return abortCodeDescriptionMap[AbortGeneral]
}

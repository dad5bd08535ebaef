package od

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrEdsFormat = errors.New("invalid EDS format")

// ODR is an internal object-dictionary result code, the value a [Streamer]
// or extension hook returns to signal success, a partial transfer, or one
// of the CiA 301 access failure reasons. It implements error so it can be
// returned directly; see abort.go for its mapping onto an SDO abort code.
type ODR int8

const (
	ErrPartial ODR = iota - 1 // transfer incomplete, more data follows
	ErrNo                     // success
	ErrOutOfMem
	ErrUnsuppAccess
	ErrWriteOnly
	ErrReadonly
	ErrIdxNotExist
	ErrNoMap
	ErrMapLen
	ErrParIncompat
	ErrDevIncompat
	ErrHw
	ErrTypeMismatch
	ErrDataLong
	ErrDataShort
	ErrSubNotExist
	ErrInvalidValue
	ErrValueHigh
	ErrValueLow
	ErrMaxLessMin
	ErrNoRessource
	ErrGeneral
	ErrDataTransf
	ErrDataLocCtrl
	ErrDataDevState
	ErrOdMissing
	ErrNoData
	ErrCount // sentinel, one past the last defined code
)

var odrDescription = map[ODR]string{
	ErrPartial:      "Incomplete transfer",
	ErrNo:           "No error",
	ErrOutOfMem:     "Out of memory",
	ErrUnsuppAccess: "Unsupported access to an object",
	ErrWriteOnly:    "Attempt to read a write only object",
	ErrReadonly:     "Attempt to write a read only object",
	ErrIdxNotExist:  "Object does not exist in the object dictionary",
	ErrNoMap:        "Object cannot be mapped to the PDO",
	ErrMapLen:       "Num and len of object to be mapped exceeds PDO len",
	ErrParIncompat:  "General parameter incompatibility reasons",
	ErrDevIncompat:  "General internal incompatibility in device",
	ErrHw:           "Access failed due to hardware error",
	ErrTypeMismatch: "Data type does not match, length does not match",
	ErrDataLong:     "Data type does not match, length too high",
	ErrDataShort:    "Data type does not match, length too short",
	ErrSubNotExist:  "Sub index does not exist",
	ErrInvalidValue: "Invalid value for parameter (download only)",
	ErrValueHigh:    "Value range of parameter written too high",
	ErrValueLow:     "Value range of parameter written too low",
	ErrMaxLessMin:   "Maximum value is less than minimum value.",
	ErrNoRessource:  "Resource not available: SDO connection",
	ErrGeneral:      "General error",
	ErrDataTransf:   "Data cannot be transferred or stored to application",
	ErrDataLocCtrl:  "Data cannot be transferred because of local control",
	ErrDataDevState: "Data cannot be tran. because of present device state",
	ErrOdMissing:    "Object dict. not present or dynamic generation fails",
	ErrNoData:       "No data available",
}

func (odr ODR) Error() string {
	description, ok := odrDescription[odr]
	if !ok {
		description = "unknown"
	}
	return fmt.Sprintf("OD error %s (%s)", strconv.Itoa(int(odr)), description)
}

const (
	MaxMappedEntriesPdo = uint8(8)
	FlagsPdoSize        = uint8(32)
)

// Object dictionary sub-entry access attribute bits, OR'd together to form
// a [Variable]'s Attribute field.
const (
	AttributeSdoR   uint8 = 0x01 // SDO server may read from the variable
	AttributeSdoW   uint8 = 0x02 // SDO server may write to the variable
	AttributeSdoRw  uint8 = 0x03 // SDO server may read from or write to the variable
	AttributeTpdo   uint8 = 0x04 // Variable is mappable into TPDO (can be read)
	AttributeRpdo   uint8 = 0x08 // Variable is mappable into RPDO (can be written)
	AttributeTrpdo  uint8 = 0x0C // Variable is mappable into TPDO or RPDO
	AttributeTsrdo  uint8 = 0x10 // Variable is mappable into transmitting SRDO
	AttributeRsrdo  uint8 = 0x20 // Variable is mappable into receiving SRDO
	AttributeTrsrdo uint8 = 0x30 // Variable is mappable into tx or rx SRDO
	AttributeMb     uint8 = 0x40 // Variable is multi-byte ((u)int16 to (u)int64)
	// AttributeStr marks a VISIBLE_STRING or OCTET_STRING variable (set by
	// EncodeAttribute). WriteEntryDefault does not consult it: a write
	// shorter than the variable's size is handled as a partial transfer, and
	// the remainder is not zero-filled.
	AttributeStr uint8 = 0x80
)

// Indices of the CiA 301 communication profile area's standard entries,
// named for readability at call sites ([Entry.Index] still does the actual
// lookup).
const (
	EntryDeviceType                  uint16 = 0x1000
	EntryErrorRegister               uint16 = 0x1001
	EntryManufacturerStatusRegister  uint16 = 0x1002
	EntryCobIdSYNC                   uint16 = 0x1005
	EntryCommunicationCyclePeriod    uint16 = 0x1006
	EntrySynchronousWindowLength     uint16 = 0x1007
	EntryManufacturerDeviceName      uint16 = 0x1008
	EntryManufacturerHardwareVersion uint16 = 0x1009
	EntryManufacturerSoftwareVersion uint16 = 0x100A
	EntryStoreParameters             uint16 = 0x1010
	EntryRestoreDefaultParameters    uint16 = 0x1011
	EntryCobIdTIME                   uint16 = 0x1012
	EntryHighResTimestamp            uint16 = 0x1013
	EntryCobIdEMCY                   uint16 = 0x1014
	EntryInhibitTimeEMCY             uint16 = 0x1015
	EntryConsumerHeartbeatTime       uint16 = 0x1016
	EntryProducerHeartbeatTime       uint16 = 0x1017
	EntryIdentityObject              uint16 = 0x1018
	EntrySynchronousCounterOverflow  uint16 = 0x1019
	EntryStoreEDS                    uint16 = 0x1021
	EntryStorageFormat               uint16 = 0x1022
	EntryRPDOCommunicationStart      uint16 = 0x1400
	EntryRPDOCommunicationEnd        uint16 = 0x15FF
	EntryRPDOMappingStart            uint16 = 0x1600
	EntryRPDOMappingEnd              uint16 = 0x17FF
	EntryTPDOCommunicationStart      uint16 = 0x1800
	EntryTPDOCommunicationEnd        uint16 = 0x19FF
	EntryTPDOMappingStart            uint16 = 0x1A00
	EntryTPDOMappingEnd              uint16 = 0x1BFF
)

// Boundaries of the CiA 301 object areas, used to classify an arbitrary
// index (e.g. when exporting or validating an OD).
const (
	AreaCommunicationProfileStart        uint16 = 0x1000
	AreaCommunicationProfileEnd          uint16 = 0x1FFF
	AreaManufacturerSpecificProfileStart uint16 = 0x2000
	AreaManufacturerSpecificProfileEnd   uint16 = 0x5FFF
	AreaDeviceProfileStart               uint16 = 0x6000
	AreaDeviceProfileEnd                 uint16 = 0x9FFF
	AreaInterfaceProfileStart            uint16 = 0xA000
	AreaInterfaceProfileEnd              uint16 = 0xBFFF
	AreaFutureUseStart                   uint16 = 0xC000
	AreaFutureUseEnd                     uint16 = 0xFFFF
)

// EDS container formats, CiA 306 section 4.2.
const (
	FormatEDSAscii  = 0
	FormatEDSZipped = 0x90
)

// AreaOf classifies index into the CiA 301 object area it falls in, for
// callers that want a human label rather than a raw boundary comparison.
func AreaOf(index uint16) string {
	switch {
	case index >= AreaCommunicationProfileStart && index <= AreaCommunicationProfileEnd:
		return "communication profile"
	case index >= AreaManufacturerSpecificProfileStart && index <= AreaManufacturerSpecificProfileEnd:
		return "manufacturer specific"
	case index >= AreaDeviceProfileStart && index <= AreaDeviceProfileEnd:
		return "device profile"
	case index >= AreaInterfaceProfileStart && index <= AreaInterfaceProfileEnd:
		return "interface profile"
	default:
		return "reserved"
	}
}

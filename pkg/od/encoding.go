package od

import (
	"encoding/binary"
	"math"
	"strconv"
)

// fixedWidth gives the fixed wire width, in bytes, of every integer/float
// CANopen data type. Variable-length types (strings, domain) are absent;
// CheckSize treats an absent entry as "no fixed size to enforce".
var fixedWidth = map[uint8]int{
	BOOLEAN:    1,
	UNSIGNED8:  1,
	INTEGER8:   1,
	UNSIGNED16: 2,
	INTEGER16:  2,
	UNSIGNED32: 4,
	INTEGER32:  4,
	REAL32:     4,
	UNSIGNED64: 8,
	INTEGER64:  8,
	REAL64:     8,
}

// EncodeFromString parses value (as read from an EDS DefaultValue,
// ParameterValue or LowLimit/HighLimit field) into its little-endian wire
// encoding for datatype. offset is added to the parsed integer, used to turn
// a $NODEID-relative default into its node-resolved value; it is ignored for
// string and domain types. An empty value is treated as zero.
func EncodeFromString(value string, datatype uint8, offset uint8) ([]byte, error) {
	if value == "" {
		value = "0"
	}

	switch datatype {
	case BOOLEAN, UNSIGNED8:
		parsed, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return nil, err
		}
		return []byte{byte(uint8(parsed) + offset)}, nil

	case INTEGER8:
		parsed, err := strconv.ParseInt(value, 0, 8)
		if err != nil {
			return nil, err
		}
		return []byte{byte(parsed + int64(offset))}, nil

	case UNSIGNED16:
		parsed, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(parsed)+uint16(offset))
		return data, nil

	case INTEGER16:
		parsed, err := strconv.ParseInt(value, 0, 16)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 2)
		binary.LittleEndian.PutUint16(data, uint16(parsed+int64(offset)))
		return data, nil

	case UNSIGNED32:
		parsed, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(parsed)+uint32(offset))
		return data, nil

	case INTEGER32:
		parsed, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(parsed+int64(offset)))
		return data, nil

	case REAL32:
		parsed, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, math.Float32bits(float32(parsed)))
		return data, nil

	case UNSIGNED64:
		parsed, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, parsed+uint64(offset))
		return data, nil

	case INTEGER64:
		parsed, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, uint64(parsed+int64(offset)))
		return data, nil

	case REAL64:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, err
		}
		data := make([]byte, 8)
		binary.LittleEndian.PutUint64(data, math.Float64bits(parsed))
		return data, nil

	case VISIBLE_STRING, OCTET_STRING:
		return []byte(value), nil

	case DOMAIN:
		return []byte{}, nil

	default:
		return nil, ErrTypeMismatch
	}
}

// encodeNative little-endian encodes v's Go native representation, with no
// reference to a CANopen data type code. Both EncodeFromTypeExact and
// EncodeFromType expose this; they differ only by name, kept for callers
// migrating from the wider-typed encoder to the exact one.
func encodeNative(v any) ([]byte, error) {
	switch val := v.(type) {
	case uint8:
		return []byte{val}, nil
	case int8:
		return []byte{byte(val)}, nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, val)
		return b, nil
	case int16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(val))
		return b, nil
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, val)
		return b, nil
	case int32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(val))
		return b, nil
	case uint64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, val)
		return b, nil
	case int64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(val))
		return b, nil
	case string:
		return []byte(val), nil
	case float32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(val))
		return b, nil
	case float64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(val))
		return b, nil
	case []byte:
		return val, nil
	default:
		return nil, ErrTypeMismatch
	}
}

// EncodeFromTypeExact encodes a Go native value (uint8, int32, float64, ...)
// into its little-endian wire representation.
func EncodeFromTypeExact(data any) ([]byte, error) { return encodeNative(data) }

// EncodeFromType is an alias of [EncodeFromTypeExact] kept for call sites
// that predate the "Exact" naming.
func EncodeFromType(data any) ([]byte, error) { return encodeNative(data) }

// EncodeFromTypeExactToBuffer encodes data in place into buf, verifying
// dataType matches data's concrete Go type and that buf is large enough for
// variable-width types. Unlike EncodeFromTypeExact this never allocates.
func EncodeFromTypeExactToBuffer(data any, dataType uint8, buf []byte) error {
	switch val := data.(type) {
	case bool:
		if dataType != BOOLEAN {
			return ErrTypeMismatch
		}
		if val {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
	case uint8:
		if dataType != UNSIGNED8 {
			return ErrTypeMismatch
		}
		buf[0] = val
	case int8:
		if dataType != INTEGER8 {
			return ErrTypeMismatch
		}
		buf[0] = byte(val)
	case uint16:
		if dataType != UNSIGNED16 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint16(buf, val)
	case int16:
		if dataType != INTEGER16 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint16(buf, uint16(val))
	case uint32:
		if dataType != UNSIGNED32 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint32(buf, val)
	case int32:
		if dataType != INTEGER32 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint32(buf, uint32(val))
	case uint64:
		if dataType != UNSIGNED64 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint64(buf, val)
	case int64:
		if dataType != INTEGER64 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint64(buf, uint64(val))
	case float32:
		if dataType != REAL32 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(val))
	case float64:
		if dataType != REAL64 {
			return ErrTypeMismatch
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
	case string:
		if dataType != VISIBLE_STRING {
			return ErrTypeMismatch
		}
		if len(val) > len(buf) {
			return ErrDataLong
		}
		clear(buf)
		copy(buf, []byte(val))
	case []byte:
		if len(val) > len(buf) {
			return ErrDataLong
		}
		clear(buf)
		copy(buf, val)
	default:
		return ErrTypeMismatch
	}
	return nil
}

// CheckSize verifies length against dataType's fixed wire width, if it has
// one. Variable-length types (strings, domain) always pass.
func CheckSize(length int, dataType uint8) error {
	want, ok := fixedWidth[dataType]
	if !ok {
		return nil
	}
	if length < want {
		return ErrDataShort
	}
	if length > want {
		return ErrDataLong
	}
	return nil
}

// DecodeToTypeExact decodes data per dataType into its exact Go type
// (uint8, int16, float32, ...). String types come back as string; DOMAIN
// decodes to int64(0) since domain payloads carry no scalar value of their
// own.
func DecodeToTypeExact(data []byte, dataType uint8) (v any, e error) {
	e = CheckSize(len(data), dataType)
	if e != nil {
		return nil, e
	}
	switch dataType {
	case BOOLEAN, UNSIGNED8:
		return data[0], nil
	case INTEGER8:
		return int8(data[0]), nil
	case UNSIGNED16:
		return binary.LittleEndian.Uint16(data), nil
	case INTEGER16:
		return int16(binary.LittleEndian.Uint16(data)), nil
	case UNSIGNED32:
		return binary.LittleEndian.Uint32(data), nil
	case INTEGER32:
		return int32(binary.LittleEndian.Uint32(data)), nil
	case UNSIGNED64:
		return binary.LittleEndian.Uint64(data), nil
	case INTEGER64:
		return int64(binary.LittleEndian.Uint64(data)), nil
	case REAL32:
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
	case REAL64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	case VISIBLE_STRING, OCTET_STRING:
		return string(data), nil
	case DOMAIN:
		return int64(0), nil
	default:
		return nil, ErrTypeMismatch
	}
}

// DecodeToType decodes data per dataType into Go's canonical wide types:
// uint64 for unsigned/boolean, int64 for signed, float64 for reals, string
// for string types and int64(0) for DOMAIN. It is [DecodeToTypeExact] with the result
// widened, for callers that want to treat every integer width uniformly.
func DecodeToType(data []byte, dataType uint8) (v any, e error) {
	exact, err := DecodeToTypeExact(data, dataType)
	if err != nil {
		return nil, err
	}
	switch w := exact.(type) {
	case uint8:
		return uint64(w), nil
	case uint16:
		return uint64(w), nil
	case uint32:
		return uint64(w), nil
	case int8:
		return int64(w), nil
	case int16:
		return int64(w), nil
	case int32:
		return int64(w), nil
	case float32:
		return float64(w), nil
	default:
		return exact, nil
	}
}

// DecodeToString decodes data per dataType and formats it as a string in
// the given numeric base (ignored for string/domain types), matching the
// textual form an EDS file stores a default value in.
func DecodeToString(data []byte, dataType uint8, base int) (v string, e error) {
	e = CheckSize(len(data), dataType)
	if e != nil {
		return "", e
	}
	switch dataType {
	case BOOLEAN, UNSIGNED8:
		return strconv.FormatUint(uint64(data[0]), base), nil
	case INTEGER8:
		return strconv.FormatInt(int64(int8(data[0])), base), nil
	case UNSIGNED16:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint16(data)), base), nil
	case INTEGER16:
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(data))), base), nil
	case UNSIGNED32:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), base), nil
	case INTEGER32:
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(data))), base), nil
	case UNSIGNED64:
		return strconv.FormatUint(binary.LittleEndian.Uint64(data), base), nil
	case INTEGER64:
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(data)), base), nil
	case REAL32:
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 'f', -1, 64), nil
	case REAL64:
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data)), 'f', -1, 64), nil
	case VISIBLE_STRING, OCTET_STRING:
		return string(data), nil
	case DOMAIN:
		return "0", nil
	default:
		return "", ErrTypeMismatch
	}
}

// EncodeAttribute derives an OD access-attribute bitmask from an EDS
// AccessType string ("rw", "ro", "const", "wo") plus the PDO-mappable and
// string-type flags.
func EncodeAttribute(accessType string, pdoMapping bool, dataType uint8) uint8 {
	var attribute uint8
	switch accessType {
	case "rw":
		attribute = AttributeSdoRw
	case "ro", "const":
		attribute = AttributeSdoR
	case "wo":
		attribute = AttributeSdoW
	default:
		attribute = AttributeSdoRw
	}
	if pdoMapping {
		attribute |= AttributeTrpdo
	}
	if dataType == VISIBLE_STRING || dataType == OCTET_STRING {
		attribute |= AttributeStr
	}
	return attribute
}

// DecodeAttribute is EncodeAttribute's inverse for the access-mode portion,
// used when re-exporting an OD entry back to EDS.
func DecodeAttribute(attribute uint8) string {
	switch {
	case attribute&AttributeSdoRw == AttributeSdoRw:
		return "rw"
	case attribute&AttributeSdoR > 0:
		return "ro"
	case attribute&AttributeSdoW > 0:
		return "wo"
	default:
		return "rw"
	}
}

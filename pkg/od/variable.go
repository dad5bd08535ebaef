package od

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// DataLength returns the number of bytes currently stored for this variable.
func (variable *Variable) DataLength() uint32 {
	return uint32(len(variable.value))
}

// DefaultValue returns the default value (EDS DefaultValue) as a byte slice.
func (variable *Variable) DefaultValue() []byte {
	return variable.valueDefault
}

// Uint8 reads the current value as an UNSIGNED8. Returns [ErrDataShort] or
// [ErrDataLong] if the stored length does not match the variable's data type,
// and [ErrTypeMismatch] if that data type does not decode to a uint8.
func (variable *Variable) Uint8() (uint8, error) {
	v, err := DecodeToTypeExact(variable.value, variable.DataType)
	if err != nil {
		return 0, err
	}
	val, ok := v.(uint8)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return val, nil
}

// Uint16 reads the current value as an UNSIGNED16.
func (variable *Variable) Uint16() (uint16, error) {
	v, err := DecodeToTypeExact(variable.value, variable.DataType)
	if err != nil {
		return 0, err
	}
	val, ok := v.(uint16)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return val, nil
}

// Uint32 reads the current value as an UNSIGNED32.
func (variable *Variable) Uint32() (uint32, error) {
	v, err := DecodeToTypeExact(variable.value, variable.DataType)
	if err != nil {
		return 0, err
	}
	val, ok := v.(uint32)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return val, nil
}

// Uint64 reads the current value as an UNSIGNED64.
func (variable *Variable) Uint64() (uint64, error) {
	v, err := DecodeToTypeExact(variable.value, variable.DataType)
	if err != nil {
		return 0, err
	}
	val, ok := v.(uint64)
	if !ok {
		return 0, ErrTypeMismatch
	}
	return val, nil
}

// Create variable from an EDS section entry
func NewVariableFromSection(
	section *ini.Section,
	name string,
	nodeId uint8,
	index uint16,
	subindex uint8,
) (*Variable, error) {

	variable := &Variable{
		Name:     name,
		SubIndex: subindex,
	}

	// Get AccessType
	accessType, err := section.GetKey("AccessType")
	if err != nil {
		return nil, fmt.Errorf("failed to get 'AccessType' for %x : %x", index, subindex)
	}

	// Get PDOMapping to know if pdo mappable
	var pdoMapping bool
	if pM, err := section.GetKey("PDOMapping"); err == nil {
		pdoMapping, err = pM.Bool()
		if err != nil {
			return nil, err
		}
	} else {
		pdoMapping = true
	}

	dataType, err := strconv.ParseInt(section.Key("DataType").Value(), 0, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'DataType' for %x : %x, because %v", index, subindex, err)
	}
	variable.DataType = byte(dataType)
	variable.Attribute = EncodeAttribute(accessType.String(), pdoMapping, variable.DataType)

	if highLimit, err := section.GetKey("HighLimit"); err == nil {
		variable.highLimit, err = EncodeFromString(highLimit.Value(), variable.DataType, 0)
		if err != nil {
			_logger.Warn("error parsing HighLimit",
				"index", fmt.Sprintf("x%x", index),
				"subindex", fmt.Sprintf("x%x", subindex),
				"error", err,
			)
		}
	}

	if lowLimit, err := section.GetKey("LowLimit"); err == nil {
		variable.lowLimit, err = EncodeFromString(lowLimit.Value(), variable.DataType, 0)
		if err != nil {
			_logger.Warn("error parsing LowLimit",
				"index", fmt.Sprintf("x%x", index),
				"subindex", fmt.Sprintf("x%x", subindex),
				"error", err,
			)
		}
	}

	if defaultValue, err := section.GetKey("DefaultValue"); err == nil {
		defaultValueStr := defaultValue.Value()
		// If $NODEID is in default value then remove it, and add it afterwards
		if strings.Contains(defaultValueStr, "$NODEID") {
			re := regexp.MustCompile(`\+?\$NODEID\+?`)
			defaultValueStr = re.ReplaceAllString(defaultValueStr, "")
		} else {
			nodeId = 0
		}
		variable.valueDefault, err = EncodeFromString(defaultValueStr, variable.DataType, nodeId)
		if err != nil {
			return nil, fmt.Errorf("failed to parse 'DefaultValue' for x%x|x%x, because %v (datatype :x%x)", index, subindex, err, variable.DataType)
		}
		variable.value = make([]byte, len(variable.valueDefault))
		copy(variable.value, variable.valueDefault)
	}

	return variable, nil
}

// Create a new variable
func NewVariable(
	subindex uint8,
	name string,
	datatype uint8,
	attribute uint8,
	value string,
) (*Variable, error) {
	encoded, err := EncodeFromString(value, datatype, 0)
	if err != nil {
		return nil, err
	}
	encodedCopy := make([]byte, len(encoded))
	copy(encodedCopy, encoded)
	variable := &Variable{
		SubIndex:     subindex,
		Name:         name,
		value:        encoded,
		valueDefault: encodedCopy,
		Attribute:    attribute,
		DataType:     datatype,
	}
	return variable, nil
}

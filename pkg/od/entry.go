package od

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
)

// Entry is the main building block of an [ObjectDictionary]: one OD object
// at a specific 16-bit index, as laid out by CiA 301. Its payload is one of:
//   - VAR / DOMAIN -> [Variable]
//   - ARRAY / RECORD -> [VariableList]
//
// ARRAY and RECORD entries carry multiple sub entries; every sub entry is a
// [Variable] regardless of the parent's own object type.
type Entry struct {
	logger     *slog.Logger
	Index      uint16
	Name       string
	ObjectType uint8
	object     any
	extension  *extension
	// subEntriesNameMap resolves an EDS sub-entry name to its numeric
	// sub-index, for SubIndex's string form.
	subEntriesNameMap map[string]uint8
}

// NewEntry builds an Entry wrapping object (a *Variable for VAR/DOMAIN, a
// *VariableList for ARRAY/RECORD).
func NewEntry(logger *slog.Logger, index uint16, name string, object any, objectType uint8) *Entry {
	return &Entry{
		logger:            logger.With("index", fmt.Sprintf("x%x", index), "name", name),
		Index:             index,
		Name:              name,
		object:            object,
		ObjectType:        objectType,
		subEntriesNameMap: map[string]uint8{},
	}
}

// SubIndex resolves the [Variable] bound to subIndex, which may be a
// string (looked up by EDS sub-entry name), an int, or a uint8.
func (entry *Entry) SubIndex(subIndex any) (*Variable, error) {
	if entry == nil {
		return nil, ErrIdxNotExist
	}
	switch object := entry.object.(type) {
	case *Variable:
		if subIndex != 0 && subIndex != uint8(0) && subIndex != "" {
			return nil, ErrSubNotExist
		}
		return object, nil
	case *VariableList:
		resolved, err := entry.resolveSubIndex(subIndex)
		if err != nil {
			return nil, err
		}
		return object.GetSubObject(resolved)
	default:
		return nil, ErrDevIncompat
	}
}

// resolveSubIndex converts subIndex's string/int/uint8 selector form into
// the numeric sub-index a [VariableList] addresses its entries by.
func (entry *Entry) resolveSubIndex(subIndex any) (uint8, error) {
	switch sub := subIndex.(type) {
	case string:
		resolved, ok := entry.subEntriesNameMap[sub]
		if !ok {
			return 0, ErrSubNotExist
		}
		return resolved, nil
	case int:
		if sub < 0 || sub >= 256 {
			return 0, ErrDevIncompat
		}
		return uint8(sub), nil
	case uint8:
		return sub, nil
	default:
		return 0, ErrDevIncompat
	}
}

// addSectionMember parses section as one more sub entry of name at subIndex
// and appends it to entry, which must be an ARRAY or RECORD.
func (entry *Entry) addSectionMember(section *ini.Section, name string, nodeId uint8, subIndex uint8) error {
	list, ok := entry.object.(*VariableList)
	if !ok {
		return fmt.Errorf("od: cannot add a sub entry to a %T entry", entry.object)
	}
	variable, err := NewVariableFromSection(section, name, nodeId, entry.Index, subIndex)
	if err != nil {
		return err
	}
	switch entry.ObjectType {
	case ObjectTypeARRAY:
		list.Variables[subIndex] = variable
	case ObjectTypeRECORD:
		list.Variables = append(list.Variables, variable)
	default:
		return fmt.Errorf("od: entries of object type %v don't take sub entries", entry.ObjectType)
	}
	entry.subEntriesNameMap[name] = subIndex
	return nil
}

// AddExtension installs custom read/write behavior on an OD entry, letting
// access to it run application logic instead of a plain byte-buffer
// round-trip. [ReadEntryDefault] and [WriteEntryDefault] implement the
// ordinary, extension-free behavior a [Streamer] falls back to.
func (entry *Entry) AddExtension(object any, read StreamReader, write StreamWriter) {
	entry.logger.Debug("added extension",
		"read", extensionHookName(read),
		"write", extensionHookName(write),
	)
	entry.extension = &extension{object: object, read: read, write: write}
}

// SubCount returns the number of sub entries entry holds: 1 for a VAR or
// DOMAIN entry, len(Variables) for an ARRAY or RECORD.
func (entry *Entry) SubCount() int {
	switch object := entry.object.(type) {
	case *Variable:
		return 1
	case *VariableList:
		return len(object.Variables)
	default:
		entry.logger.Error("entry holds neither a Variable nor a VariableList", "type", fmt.Sprintf("%T", entry.object))
		return 1
	}
}

func (entry *Entry) Extension() *extension {
	return entry.extension
}

// FlagPDOByte returns a pointer into the PDO-mapped flag byte covering
// subIndex (one bit per sub-index, 8 sub-indices per byte).
func (entry *Entry) FlagPDOByte(subIndex byte) *uint8 {
	return &entry.extension.flagsPDO[subIndex>>3]
}

// Uint8 reads subIndex as an UNSIGNED8.
func (entry *Entry) Uint8(subIndex uint8) (uint8, error) {
	sub, err := entry.SubIndex(subIndex)
	if err != nil {
		return 0, err
	}
	return sub.Uint8()
}

// Uint16 reads subIndex as an UNSIGNED16.
func (entry *Entry) Uint16(subIndex uint8) (uint16, error) {
	sub, err := entry.SubIndex(subIndex)
	if err != nil {
		return 0, err
	}
	return sub.Uint16()
}

// Uint32 reads subIndex as an UNSIGNED32.
func (entry *Entry) Uint32(subIndex uint8) (uint32, error) {
	sub, err := entry.SubIndex(subIndex)
	if err != nil {
		return 0, err
	}
	return sub.Uint32()
}

// Uint64 reads subIndex as an UNSIGNED64.
func (entry *Entry) Uint64(subIndex uint8) (uint64, error) {
	sub, err := entry.SubIndex(subIndex)
	if err != nil {
		return 0, err
	}
	return sub.Uint64()
}

// PutUint8 writes an UNSIGNED8 to subIndex. origin bypasses any registered
// extension when true.
func (entry *Entry) PutUint8(subIndex uint8, value uint8, origin bool) error {
	return entry.WriteExactly(subIndex, []byte{value}, origin)
}

// PutUint16 writes an UNSIGNED16 to subIndex. origin bypasses any
// registered extension when true.
func (entry *Entry) PutUint16(subIndex uint8, value uint16, origin bool) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, value)
	return entry.WriteExactly(subIndex, b, origin)
}

// PutUint32 writes an UNSIGNED32 to subIndex. origin bypasses any
// registered extension when true.
func (entry *Entry) PutUint32(subIndex uint8, value uint32, origin bool) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, value)
	return entry.WriteExactly(subIndex, b, origin)
}

// PutUint64 writes an UNSIGNED64 to subIndex. origin bypasses any
// registered extension when true.
func (entry *Entry) PutUint64(subIndex uint8, value uint64, origin bool) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, value)
	return entry.WriteExactly(subIndex, b, origin)
}

// ReadExactly reads exactly len(b) bytes from (entry, subIndex) into b,
// failing with ErrTypeMismatch if the OD storage is a different length.
// origin controls whether a registered extension's read hook runs.
func (entry *Entry) ReadExactly(subIndex uint8, b []byte, origin bool) error {
	streamer, err := NewStreamer(entry, subIndex, origin)
	if err != nil {
		return err
	}
	if int(streamer.DataLength) != len(b) {
		return ErrTypeMismatch
	}
	_, err = streamer.Read(b)
	return err
}

// WriteExactly writes exactly len(b) bytes to (entry, subIndex), failing
// with ErrTypeMismatch if the OD storage is a different length. origin
// controls whether a registered extension's write hook runs.
func (entry *Entry) WriteExactly(subIndex uint8, b []byte, origin bool) error {
	streamer, err := NewStreamer(entry, subIndex, origin)
	if err != nil {
		return err
	}
	if int(streamer.DataLength) != len(b) {
		return ErrTypeMismatch
	}
	_, err = streamer.Write(b)
	return err
}

// extensionHookName names a StreamReader/StreamWriter function for logging,
// e.g. "writeEntry1014". Every hook the package registers is a named
// function, never a closure, so this always resolves to something
// meaningful; hook is only nil in tests that exercise AddExtension directly.
func extensionHookName(hook any) string {
	if hook == nil {
		return "<nil>"
	}
	fn := runtime.FuncForPC(reflect.ValueOf(hook).Pointer())
	if fn == nil {
		return "<unknown>"
	}
	parts := strings.Split(fn.Name(), ".")
	return parts[len(parts)-1]
}

package od

// VariableList holds the sub entries of an ARRAY or RECORD OD entry: every
// sub entry is a [Variable], indexed either by array position (ARRAY) or by
// its own declared sub-index (RECORD).
type VariableList struct {
	Variables         []*Variable
	objectType        uint8 // ObjectTypeARRAY or ObjectTypeRECORD
	subEntriesNameMap map[string]uint8
}

// GetSubObject returns the [Variable] at subIndex. For an ARRAY this is a
// direct bounds-checked slice index; for a RECORD, sub-indices need not be
// contiguous so it scans for the matching declared SubIndex.
func (list *VariableList) GetSubObject(subIndex uint8) (*Variable, error) {
	if list.objectType == ObjectTypeARRAY {
		if int(subIndex) >= len(list.Variables) {
			return nil, ErrSubNotExist
		}
		return list.Variables[subIndex], nil
	}
	for _, variable := range list.Variables {
		if variable.SubIndex == subIndex {
			return variable, nil
		}
	}
	return nil, ErrSubNotExist
}

// GetSubObjectByName resolves a sub entry by its EDS name instead of its
// numeric sub-index.
func (list *VariableList) GetSubObjectByName(name string) (*Variable, error) {
	subIndex, ok := list.subEntriesNameMap[name]
	if !ok {
		return nil, ErrSubNotExist
	}
	return list.GetSubObject(subIndex)
}

// AddSubObject adds a new [Variable] at subIndex. For an ARRAY, subIndex
// must already be a valid slot (arrays are pre-sized by [NewArray]); for a
// RECORD any sub-index is accepted and the list grows to hold it.
func (list *VariableList) AddSubObject(
	subIndex uint8,
	name string,
	datatype uint8,
	attribute uint8,
	value string,
) (*Variable, error) {
	variable, err := NewVariable(subIndex, name, datatype, attribute, value)
	if err != nil {
		return nil, err
	}
	list.subEntriesNameMap[name] = subIndex

	if list.objectType == ObjectTypeARRAY {
		if int(subIndex) >= len(list.Variables) {
			_logger.Error("trying to add a sub-object to array but out of bounds",
				"subIndex", subIndex,
				"length", len(list.Variables),
			)
			return nil, ErrSubNotExist
		}
		list.Variables[subIndex] = variable
		return variable, nil
	}

	list.Variables = append(list.Variables, variable)
	return variable, nil
}

func newVariableList(length int, objectType uint8) *VariableList {
	return &VariableList{
		objectType:        objectType,
		Variables:         make([]*Variable, length),
		subEntriesNameMap: make(map[string]uint8),
	}
}

// NewRecord creates an empty RECORD; sub entries are appended by index as
// they are added, in whatever order AddSubObject is called.
func NewRecord() *VariableList {
	return newVariableList(0, ObjectTypeRECORD)
}

// NewArray creates an ARRAY pre-sized to length slots (sub-index 0 through
// length-1), to be filled in by AddSubObject.
func NewArray(length uint8) *VariableList {
	return newVariableList(int(length), ObjectTypeARRAY)
}

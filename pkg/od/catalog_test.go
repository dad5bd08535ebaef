package od

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestOD(t *testing.T) *ObjectDictionary {
	t.Helper()
	dict := NewOD()
	_, err := dict.AddVariableType(0x1000, "Device type", UNSIGNED32, AttributeSdoR, "0x0")
	assert.Nil(t, err)
	_, err = dict.AddVariableType(0x1001, "Error register", UNSIGNED8, AttributeSdoR, "0x0")
	assert.Nil(t, err)
	_, err = dict.AddVariableType(0x1003, "Pre-defined error field", UNSIGNED32, AttributeSdoR, "0x0")
	assert.Nil(t, err)
	_, err = dict.AddVariableType(0x1014, "COB-ID EMCY", UNSIGNED32, AttributeSdoRw, "0x80")
	assert.Nil(t, err)
	_, err = dict.AddVariableType(0x1018, "Identity object", UNSIGNED32, AttributeSdoR, "0x0")
	assert.Nil(t, err)
	return dict
}

func TestFindReturnsMatchingIndex(t *testing.T) {
	dict := newTestOD(t)

	entry := dict.Find(0x1003)
	assert.NotNil(t, entry)
	assert.Equal(t, uint16(0x1003), entry.Index)

	entry = dict.Find(0x1002)
	assert.Nil(t, entry)

	entry = dict.Find(0x1018)
	assert.NotNil(t, entry)
	assert.Equal(t, uint16(0x1018), entry.Index)
}

func TestFindOnEveryIndexMatches(t *testing.T) {
	dict := newTestOD(t)
	for _, entry := range dict.Entries() {
		found := dict.Find(entry.Index)
		assert.NotNil(t, found)
		assert.Equal(t, entry.Index, found.Index)
	}
}

func TestEntriesSortedByIndex(t *testing.T) {
	dict := newTestOD(t)
	entries := dict.Entries()
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Index, entries[i].Index)
	}
}

func TestInsertReplacesExistingIndex(t *testing.T) {
	dict := NewOD()
	_, err := dict.AddVariableType(0x2000, "First", UNSIGNED8, AttributeSdoRw, "0x1")
	assert.Nil(t, err)
	_, err = dict.AddVariableType(0x2000, "Second", UNSIGNED8, AttributeSdoRw, "0x2")
	assert.Nil(t, err)

	assert.Equal(t, 1, len(dict.Entries()))
	assert.Equal(t, "Second", dict.Entries()[0].Name)
}

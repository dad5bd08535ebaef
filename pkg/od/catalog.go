package od

import "sort"

// catalog holds all entries of an [ObjectDictionary] sorted by strictly
// increasing Index, so that Find can resolve an index in O(log N) via binary
// search instead of a hash lookup. This mirrors how the CANopen stack looks
// up OD entries against a statically built, sorted table.
type catalog struct {
	entries []*Entry
}

// insert adds entry to the catalog keeping it sorted by Index. If an entry
// already exists at that index it is replaced in place.
func (c *catalog) insert(entry *Entry) {
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Index >= entry.Index
	})
	if i < len(c.entries) && c.entries[i].Index == entry.Index {
		c.entries[i] = entry
		return
	}
	c.entries = append(c.entries, nil)
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = entry
}

// find performs a binary search for index, returning nil if absent.
func (c *catalog) find(index uint16) *Entry {
	i := sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].Index >= index
	})
	if i < len(c.entries) && c.entries[i].Index == index {
		return c.entries[i]
	}
	return nil
}

// Find returns the OD entry at the given index using a binary search over
// the sorted catalog, or nil if no such entry exists.
func (od *ObjectDictionary) Find(index uint16) *Entry {
	return od.catalog.find(index)
}

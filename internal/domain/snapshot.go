package domain

// Status is a normalized per-slot availability value from the center's page.
// StatusSufficient is the only value meaning "stocked"; everything else is a
// shortage of some wording.
type Status string

const StatusSufficient Status = "sufficient"

// Snapshot is one tick's view of the center's inventory, keyed by slot.
// It is built once per fetch and never mutated afterwards.
type Snapshot map[Key]Status

// Lookup returns the status for a slot, reporting whether the slot was
// present on the page at all.
func (s Snapshot) Lookup(k Key) (Status, bool) {
	st, ok := s[k]
	return st, ok
}

package entity

import "maps"

// Record is one result row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

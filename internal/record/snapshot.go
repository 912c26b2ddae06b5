package record

import "github.com/roach88/revise/internal/value"

// Snapshot is an immutable copy of selected field values taken before
// mutation. It shares no storage with the live record.
type Snapshot struct {
	values  map[string]value.Value
	present map[string]bool
}

// TakeSnapshot deep-copies the named fields of r.
func TakeSnapshot(r Record, fields []string) Snapshot {
	s := Snapshot{
		values:  make(map[string]value.Value, len(fields)),
		present: make(map[string]bool, len(fields)),
	}
	for _, f := range fields {
		v, ok := r.Field(f)
		s.present[f] = ok
		if ok {
			s.values[f] = value.Clone(v)
		}
	}
	return s
}

// Get returns the captured value of field. Fields the record did not
// have read as Null.
func (s Snapshot) Get(field string) (value.Value, bool) {
	if !s.present[field] {
		return value.Null{}, false
	}
	return value.Clone(s.values[field]), true
}

// Change is one changed attribute: the field, its snapshot value and its
// post-mutation value.
type Change struct {
	Field    string      `json:"field"`
	Previous value.Value `json:"previous"`
	Current  value.Value `json:"current"`
}

// Changed reports whether the values differ.
func (c Change) Changed() bool {
	return !value.Equal(c.Previous, c.Current)
}

// Diff computes the changed attributes for a completed mutation.
//
// Membership is decided by key, not by value: every key of attrs that
// exists on the record is reported, in attrs order, even when previous
// equals current. Fields outside attrs are never reported.
func Diff(before Snapshot, after Record, attrs Attributes) []Change {
	changes := []Change{}
	for _, key := range attrs.Keys() {
		current, ok := after.Field(key)
		if !ok {
			continue
		}
		previous, _ := before.Get(key)
		changes = append(changes, Change{
			Field:    key,
			Previous: previous,
			Current:  value.Clone(current),
		})
	}
	return changes
}

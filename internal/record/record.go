package record

import (
	"maps"
	"strconv"
	"strings"
)

// Well-known keys present in persisted records.
const (
	// KeySharedID holds the batch identifier that correlates rows written
	// across sheets during the same polling cycle.
	KeySharedID = "SharedID"
	// KeyStock holds the human-readable instrument name on per-instrument rows.
	KeyStock = "Stock"
)

// Record maps field names to their raw string values as received from the
// remote source. Values stay unparsed here; the sheet store coerces
// numeric-looking values when it writes them.
type Record map[string]string

// New seeds a record with the shared batch identifier under the configured
// identifier column name (KeySharedID by default).
func New(idColumn string, batchID int64) Record {
	return Record{idColumn: strconv.FormatInt(batchID, 10)}
}

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Set is a lookup set of field names.
type Set map[string]struct{}

// NewSet builds a Set from the given field names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

// Has reports whether name is a member of the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Valid reports whether value is acceptable for the named field.
//
// Empty and all-whitespace values are always rejected. A field listed in
// nonZero is additionally rejected when its value parses as the integer 0;
// a value that does not parse as an integer is judged by the emptiness rule
// alone, so the non-zero constraint never rejects non-numeric data.
func Valid(name, value string, nonZero Set) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if nonZero.Has(name) {
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n == 0 {
			return false
		}
	}
	return true
}

// Merge folds incoming into r, all or nothing.
//
// An empty incoming map invalidates the merge outright: a source that
// returned nothing has nothing trustworthy to contribute. Otherwise every
// incoming pair is validated first; a single rejection leaves r untouched
// and reports false, so no partial update ever leaks into the record. When
// everything passes, all pairs are committed, overwriting on key collision.
func (r Record) Merge(incoming map[string]string, nonZero Set) bool {
	if len(incoming) == 0 {
		return false
	}
	for name, value := range incoming {
		if !Valid(name, value, nonZero) {
			return false
		}
	}
	for name, value := range incoming {
		r[name] = value
	}
	return true
}

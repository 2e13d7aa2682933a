package ledger

import (
	"context"
	"errors"
)

// Tag names shared by every record this application writes.
const (
	TagAppName     = "App-Name"
	TagFromProcess = "From-Process"
)

// ErrIndexUnavailable is returned when the index could not be queried at all.
// It is never used to signal "no match".
var ErrIndexUnavailable = errors.New("ledger index unavailable")

// Tag is a single name/value pair attached to a ledger record.
type Tag struct {
	Name  string `cbor:"name"  json:"name"`
	Value string `cbor:"value" json:"value"`
}

// TagFilter matches records carrying Name with any of Values.
type TagFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Match builds a filter for a single value.
func Match(name, value string) TagFilter {
	return TagFilter{Name: name, Values: []string{value}}
}

// Query is a tag-filtered lookup. Results are ordered most recent first.
type Query struct {
	Tags  []TagFilter
	First int
}

// Record is the tag set of one matching ledger entry.
type Record struct {
	Tags []Tag
}

// Value returns the first value stored under name.
func (r Record) Value(name string) (string, bool) {
	for _, tag := range r.Tags {
		if tag.Name == name {
			return tag.Value, true
		}
	}

	return "", false
}

// Matches reports whether the record satisfies every filter.
func (r Record) Matches(filters []TagFilter) bool {
	for _, f := range filters {
		if !r.matchesFilter(f) {
			return false
		}
	}

	return true
}

func (r Record) matchesFilter(f TagFilter) bool {
	for _, tag := range r.Tags {
		if tag.Name != f.Name {
			continue
		}

		for _, v := range f.Values {
			if tag.Value == v {
				return true
			}
		}
	}

	return false
}

// Querier runs read-only tag queries against the ledger index.
// An empty result is not an error.
type Querier interface {
	Query(ctx context.Context, q Query) ([]Record, error)
}

package graph

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Id prefixes for allocated identifiers.
const (
	StatePrefix      = "q"
	TransitionPrefix = "t"
)

// ID identifies a state or transition. The zero value is Unassigned: such an
// entity receives the next free identifier when it is added to a graph.
// An Unassigned ID never compares equal to an assigned one.
type ID struct {
	value    string
	assigned bool
}

// Unassigned is the identifier of an entity that has not been added yet.
var Unassigned = ID{}

// Assigned wraps a concrete identifier. An empty string yields Unassigned.
func Assigned(s string) ID {
	if s == "" {
		return Unassigned
	}
	return ID{value: s, assigned: true}
}

// IsAssigned reports whether id carries a concrete identifier.
func (id ID) IsAssigned() bool {
	return id.assigned
}

// Value returns the identifier and whether it is assigned.
func (id ID) Value() (string, bool) {
	return id.value, id.assigned
}

// String returns the identifier, or "_" for Unassigned.
func (id ID) String() string {
	if !id.assigned {
		return "_"
	}
	return id.value
}

// MarshalJSON encodes an assigned id as a string and Unassigned as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.assigned {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a string or null. The legacy placeholders "q_" and
// "t_" decode to Unassigned.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = Unassigned
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == StatePrefix+"_" || s == TransitionPrefix+"_" {
		*id = Unassigned
		return nil
	}
	*id = Assigned(s)
	return nil
}

// idSuffix parses the numeric suffix of id after prefix.
func idSuffix(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextAvailableID returns prefix followed by one more than the largest
// numeric suffix among ids carrying that prefix, or prefix+"0" if there are
// none. Ids with other prefixes or non-numeric suffixes are ignored.
func NextAvailableID(ids []string, prefix string) string {
	next := 0
	for _, id := range ids {
		if n, ok := idSuffix(id, prefix); ok && n >= next {
			next = n + 1
		}
	}
	return prefix + strconv.Itoa(next)
}

package path

import (
	"fmt"
	"sort"
)

// Sentinel stored in Firestore when a user (or code) holds every track.
const AllSentinel = "all"

// Set is a user's unlocked-track set. Firestore stores it either as the
// string "all" or as an array of track IDs, so the zero value (no tracks)
// and the all-tracks case both need explicit handling.
type Set struct {
	All bool
	IDs []string
}

func NewSet(ids ...string) Set {
	s := Set{}
	for _, id := range ids {
		s = s.Add(id)
	}
	return s
}

func AllSet() Set {
	return Set{All: true}
}

func (s Set) IsEmpty() bool {
	return !s.All && len(s.IDs) == 0
}

func (s Set) Contains(trackID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.IDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// Add returns a set with trackID included. Adding to an "all" set is a no-op.
func (s Set) Add(trackID string) Set {
	if s.All || s.Contains(trackID) {
		return s
	}
	ids := append(append([]string(nil), s.IDs...), trackID)
	sort.Strings(ids)
	return Set{IDs: ids}
}

// Union merges other into s. If either side is "all", the result is "all".
func (s Set) Union(other Set) Set {
	if s.All || other.All {
		return AllSet()
	}
	out := s
	for _, id := range other.IDs {
		out = out.Add(id)
	}
	return out
}

// Diff returns the members of s not already contained in held. An "all"
// grant against anything short of "all" still yields "all".
func (s Set) Diff(held Set) Set {
	if held.All {
		return Set{}
	}
	if s.All {
		return AllSet()
	}
	out := Set{}
	for _, id := range s.IDs {
		if !held.Contains(id) {
			out = out.Add(id)
		}
	}
	return out
}

func (s Set) Equal(other Set) bool {
	if s.All != other.All {
		return false
	}
	if len(s.IDs) != len(other.IDs) {
		return false
	}
	for i := range s.IDs {
		if s.IDs[i] != other.IDs[i] {
			return false
		}
	}
	return true
}

// ToFirestore renders the set in the wire shape the web client expects:
// the literal "all" or a plain array of track IDs.
func (s Set) ToFirestore() interface{} {
	if s.All {
		return AllSentinel
	}
	if s.IDs == nil {
		return []string{}
	}
	return s.IDs
}

// FromFirestore decodes the string-or-array union. Missing fields decode
// as the empty set; legacy docs sometimes store []interface{}.
func FromFirestore(v interface{}) (Set, error) {
	switch t := v.(type) {
	case nil:
		return Set{}, nil
	case string:
		if t == AllSentinel {
			return AllSet(), nil
		}
		return Set{}, fmt.Errorf("unexpected path sentinel %q", t)
	case []string:
		return NewSet(t...), nil
	case []interface{}:
		s := Set{}
		for _, e := range t {
			id, ok := e.(string)
			if !ok {
				return Set{}, fmt.Errorf("unexpected path element %T", e)
			}
			s = s.Add(id)
		}
		return s, nil
	default:
		return Set{}, fmt.Errorf("unexpected paths value %T", v)
	}
}

// FromJSON decodes the same union out of a decoded JSON body, where arrays
// always arrive as []interface{}.
func FromJSON(v interface{}) (Set, error) {
	return FromFirestore(v)
}

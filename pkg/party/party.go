// Package party defines node identifiers used throughout the signing
// session and its sub-sessions.
package party

import (
	"sort"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/signsession/pkg/curve"
)

// ID identifies a single node in the cluster. IDs are small, dense integers
// assigned out of band (by the cluster membership collaborator); the zero
// value is a valid party, since Scalar maps every ID to id+1.
type ID uint32

// Scalar returns this party's Shamir x-coordinate in the given group. The
// mapping is id+1 so that ID(0) never evaluates a polynomial at its secret
// (x=0) point.
func (id ID) Scalar(group curve.Curve) curve.Scalar {
	n := new(saferith.Nat).SetUint64(uint64(id) + 1)
	return group.NewScalar().SetNat(n)
}

// IDSlice is a sortable, searchable collection of party IDs.
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sort orders the slice in place and returns it for chaining.
func (s IDSlice) Sort() IDSlice {
	sort.Sort(s)
	return s
}

// Contains reports whether id is present in the slice.
func (s IDSlice) Contains(id ID) bool {
	for _, other := range s {
		if other == id {
			return true
		}
	}
	return false
}

// Copy returns a fresh copy of the slice.
func (s IDSlice) Copy() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	return out
}

// Remove returns a new slice with id removed, if present.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, other := range s {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// Intersect returns the elements of s that are also present in other.
func (s IDSlice) Intersect(other IDSlice) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, id := range s {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Union returns the elements of s together with any elements of other not
// already present, without duplicates.
func (s IDSlice) Union(other IDSlice) IDSlice {
	out := s.Copy()
	for _, id := range other {
		if !out.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

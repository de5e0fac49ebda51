package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// KeySet is a set of dotted configuration paths.
type KeySet map[string]struct{}

// NewKeySet returns a set holding paths.
func NewKeySet(paths ...string) KeySet {
	ks := make(KeySet, len(paths))
	for _, p := range paths {
		ks[p] = struct{}{}
	}
	return ks
}

// Add inserts paths into the set.
func (ks KeySet) Add(paths ...string) {
	for _, p := range paths {
		ks[p] = struct{}{}
	}
}

// Contains reports whether path is in the set.
func (ks KeySet) Contains(path string) bool {
	_, ok := ks[path]
	return ok
}

func (ks KeySet) Len() int {
	return len(ks)
}

// Union returns a new set holding the members of ks and every other set.
func (ks KeySet) Union(others ...KeySet) KeySet {
	out := make(KeySet, len(ks))
	for p := range ks {
		out[p] = struct{}{}
	}
	for _, other := range others {
		for p := range other {
			out[p] = struct{}{}
		}
	}
	return out
}

// Without returns a new set holding the members of ks not in other.
func (ks KeySet) Without(other KeySet) KeySet {
	out := make(KeySet, len(ks))
	for p := range ks {
		if !other.Contains(p) {
			out[p] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (ks KeySet) Sorted() []string {
	paths := make([]string, 0, len(ks))
	for p := range ks {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (ks KeySet) String() string {
	return "{" + strings.Join(ks.Sorted(), ", ") + "}"
}

// MarshalJSON encodes the set as a sorted array.
func (ks KeySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ks.Sorted())
}

// UnmarshalJSON decodes a JSON array of paths.
func (ks *KeySet) UnmarshalJSON(data []byte) error {
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return err
	}
	*ks = NewKeySet(paths...)
	return nil
}

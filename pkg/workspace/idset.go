package workspace

import (
	"encoding/json"
	"sort"
)

// IDSet is a sorted, duplicate-free set of row ids
type IDSet []int64

// NewIDSet builds a set from ids in any order
func NewIDSet(ids ...int64) IDSet {
	if len(ids) == 0 {
		return IDSet{}
	}
	out := make(IDSet, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// Contains reports whether id is in the set
func (s IDSet) Contains(id int64) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Len returns the number of ids
func (s IDSet) Len() int {
	return len(s)
}

// MarshalJSON encodes the set as a sorted array, never null
func (s IDSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int64(s))
}

// UnmarshalJSON accepts any array of integers
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// parseIDSet decodes a stored JSON column; malformed values read as empty
func parseIDSet(raw string) IDSet {
	var s IDSet
	if raw == "" || json.Unmarshal([]byte(raw), &s) != nil {
		return IDSet{}
	}
	return s
}

func (s IDSet) encode() string {
	data, _ := s.MarshalJSON()
	return string(data)
}

package medication

import (
	"encoding/json"
	"strings"
)

// Set is an ordered set of medication names. Membership is case-insensitive
// and the casing of the first occurrence is kept.
type Set struct {
	names []string
	index map[string]struct{}
}

func NewSet(names ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name after trimming it. It reports whether the set changed.
func (s *Set) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	k := strings.ToLower(name)
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.names = append(s.names, name)
	return true
}

func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the members in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = *NewSet(names...)
	return nil
}

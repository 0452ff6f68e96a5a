package medication

import (
	"encoding/json"
	"testing"
)

func TestSet_AddContains(t *testing.T) {
	s := NewSet("Aspirin", " ", "")
	if s.Len() != 1 {
		t.Fatalf("expected 1 member, got %d", s.Len())
	}
	if !s.Add("Warfarin") {
		t.Error("expected Warfarin to be added")
	}
	if s.Add("warfarin") {
		t.Error("expected duplicate to be rejected")
	}
	if !s.Contains(" ASPIRIN ") {
		t.Error("expected case-insensitive membership")
	}
}

func TestSet_NilSafe(t *testing.T) {
	var s *Set
	if s.Len() != 0 || s.Contains("x") || len(s.Names()) != 0 {
		t.Error("expected nil set to behave as empty")
	}
}

func TestSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewSet("A1b2", "Cdef"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `["A1b2","Cdef"]` {
		t.Errorf("unexpected json %s", data)
	}

	var s Set
	if err := json.Unmarshal([]byte(`["x","X","y"]`), &s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 members, got %d", s.Len())
	}
}

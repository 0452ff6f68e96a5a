package prescription

import (
	"testing"
	"time"
)

var refNow = time.Date(2024, time.June, 15, 14, 30, 0, 0, time.UTC)

func daysAgo(n int) string {
	return refNow.AddDate(0, 0, -n).Format("2006-01-02")
}

func TestClassifyLifecycle(t *testing.T) {
	tests := []struct {
		name     string
		issued   string
		expiring bool
		state    string
		days     int
	}{
		{"61 days ago", daysAgo(61), true, StateExpiring, 29},
		{"59 days ago", daysAgo(59), false, StateActive, 31},
		{"60 days ago", daysAgo(60), true, StateExpiring, 30},
		{"90 days ago", daysAgo(90), true, StateExpiring, 0},
		{"91 days ago", daysAgo(91), false, StateExpired, -1},
		{"today", daysAgo(0), false, StateActive, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ClassifyLifecycle(tt.issued, refNow)
			if l.ExpiringSoon != tt.expiring {
				t.Errorf("expected expiring %v, got %v", tt.expiring, l.ExpiringSoon)
			}
			if l.State != tt.state {
				t.Errorf("expected state %s, got %s", tt.state, l.State)
			}
			if l.DaysRemaining == nil || *l.DaysRemaining != tt.days {
				t.Errorf("expected %d days remaining, got %v", tt.days, l.DaysRemaining)
			}
		})
	}
}

func TestClassifyLifecycle_Timestamp(t *testing.T) {
	issued := refNow.Add(-61 * 24 * time.Hour).Format(time.RFC3339)
	l := ClassifyLifecycle(issued, refNow)
	if !l.ExpiringSoon || *l.DaysRemaining != 29 {
		t.Errorf("expected 29 days and expiring, got %+v", l)
	}

	past := refNow.Add(-(90*24 + 1) * time.Hour).Format(time.RFC3339)
	if l := ClassifyLifecycle(past, refNow); l.State != StateExpired || *l.DaysRemaining != -1 {
		t.Errorf("expected expired with -1 days, got %+v", l)
	}
}

func TestClassifyLifecycle_Unparseable(t *testing.T) {
	for _, in := range []string{"", "not a date", "2024-13-45"} {
		l := ClassifyLifecycle(in, refNow)
		if l.ExpiringSoon {
			t.Errorf("%q: expected not expiring", in)
		}
		if l.State != StateUnknown || l.DaysRemaining != nil {
			t.Errorf("%q: expected unknown state, got %+v", in, l)
		}
	}
}

func TestClassifyLifecycle_SlashDatesAreMonthFirst(t *testing.T) {
	l := ClassifyLifecycle("03/04/2024", refNow)
	if l.State != StateExpired || l.DaysRemaining == nil || *l.DaysRemaining != -13 {
		t.Errorf("expected March 4 issue to be expired by 13 days, got %+v", l)
	}

	l = ClassifyLifecycle("04/20/2024", refNow)
	if l.State != StateActive || l.DaysRemaining == nil || *l.DaysRemaining != 34 {
		t.Errorf("expected April 20 issue to have 34 days left, got %+v", l)
	}

	if l := ClassifyLifecycle("20/04/2024", refNow); l.State != StateUnknown {
		t.Errorf("expected day-first date to be unparseable, got %+v", l)
	}
}

func TestSortNewestFirst(t *testing.T) {
	records := []Record{
		{ID: "a", Date: "2024-01-01"},
		{ID: "b", CreatedAt: "2024-03-01T10:00:00Z"},
		{ID: "c", Date: "2024-02-01"},
	}
	SortNewestFirst(records)
	if records[0].ID != "b" || records[1].ID != "c" || records[2].ID != "a" {
		t.Errorf("unexpected order: %s %s %s", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestConditionFor(t *testing.T) {
	records := []Record{
		{Condition: "", Medications: []MedicationLine{{Medicine: "Aspirin"}}},
		{Condition: "hypertension", Medications: []MedicationLine{{Medicine: "Lisinopril"}}},
	}
	if got := ConditionFor("lisinopril", records); got != "hypertension" {
		t.Errorf("expected hypertension, got %q", got)
	}
	if got := ConditionFor("Aspirin", records); got != DefaultCondition {
		t.Errorf("expected default condition, got %q", got)
	}
}

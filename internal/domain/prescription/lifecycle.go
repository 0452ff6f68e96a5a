package prescription

import (
	"sort"
	"strings"
	"time"
)

const (
	// ValidityDays is the implicit validity of a prescription from its issue date.
	ValidityDays = 90
	// ExpiringWithinDays marks a prescription as expiring soon.
	ExpiringWithinDays = 30

	DefaultCondition = "general health"
)

// Lifecycle states.
const (
	StateActive   = "active"
	StateExpiring = "expiring"
	StateExpired  = "expired"
	StateUnknown  = "unknown"
)

// Slash dates are month first, as the patient app writes them.
var dateOnlyLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Lifecycle is the classification of a prescription at a reference time.
type Lifecycle struct {
	State         string `json:"state"`
	ExpiringSoon  bool   `json:"expiring_soon"`
	DaysRemaining *int   `json:"days_remaining,omitempty"`
}

// ClassifyLifecycle computes how many whole days remain of the validity
// window and whether the prescription is expiring soon. An issue date that
// cannot be parsed is reported as StateUnknown and never as expiring.
func ClassifyLifecycle(issueDate string, now time.Time) Lifecycle {
	days, ok := daysRemaining(strings.TrimSpace(issueDate), now)
	if !ok {
		return Lifecycle{State: StateUnknown}
	}

	l := Lifecycle{DaysRemaining: &days}
	switch {
	case days < 0:
		l.State = StateExpired
	case days <= ExpiringWithinDays:
		l.State = StateExpiring
		l.ExpiringSoon = true
	default:
		l.State = StateActive
	}
	return l
}

func daysRemaining(issueDate string, now time.Time) (int, bool) {
	if issueDate == "" {
		return 0, false
	}

	// Date-only values count calendar days as seen in the reference time's
	// location.
	for _, layout := range dateOnlyLayouts {
		t, err := time.ParseInLocation(layout, issueDate, time.UTC)
		if err != nil {
			continue
		}
		expiry := t.AddDate(0, 0, ValidityDays)
		y, m, d := now.Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return int(expiry.Sub(today) / (24 * time.Hour)), true
	}

	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, issueDate, now.Location())
		if err != nil {
			continue
		}
		remaining := t.AddDate(0, 0, ValidityDays).Sub(now)
		days := int(remaining / (24 * time.Hour))
		if remaining < 0 && remaining%(24*time.Hour) != 0 {
			days--
		}
		return days, true
	}
	return 0, false
}

// SortNewestFirst orders records by creation time, falling back to the issue
// date, newest first. The sort is stable.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return sortKey(records[i]) > sortKey(records[j])
	})
}

func sortKey(r Record) string {
	if r.CreatedAt != "" {
		return r.CreatedAt
	}
	return r.Date
}

// ConditionFor returns the condition of the first record prescribing medicine,
// or DefaultCondition.
func ConditionFor(medicine string, records []Record) string {
	for _, r := range records {
		listed := strings.EqualFold(strings.TrimSpace(r.Medication), medicine)
		for _, l := range r.Medications {
			if strings.EqualFold(strings.TrimSpace(l.Medicine), medicine) {
				listed = true
				break
			}
		}
		if listed && strings.TrimSpace(r.Condition) != "" {
			return r.Condition
		}
	}
	return DefaultCondition
}

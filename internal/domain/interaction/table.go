package interaction

import (
	"strings"

	"github.com/carechain/carechain/internal/domain/medication"
)

type pairKey struct{ a, b string }

func keyOf(x, y string) pairKey {
	x, y = strings.ToLower(strings.TrimSpace(x)), strings.ToLower(strings.TrimSpace(y))
	if y < x {
		x, y = y, x
	}
	return pairKey{x, y}
}

// Table is an immutable interaction rule table.
type Table struct {
	rules []Rule
}

func NewTable(rules []Rule) *Table {
	t := &Table{rules: make([]Rule, len(rules))}
	copy(t.rules, rules)
	return t
}

func (t *Table) Len() int { return len(t.rules) }

// Rules returns a copy of the table in its original order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns every rule whose two drugs are both in set, in table order.
// Returned rules always carry an explanation. Sets with fewer than two
// members never match.
func (t *Table) Match(set *medication.Set) []Rule {
	out := []Rule{}
	if set.Len() < 2 {
		return out
	}
	for _, r := range t.rules {
		if k := keyOf(r.Drugs[0], r.Drugs[1]); k.a == k.b {
			continue
		}
		if set.Contains(r.Drugs[0]) && set.Contains(r.Drugs[1]) {
			r.Explanation = r.Explain()
			out = append(out, r)
		}
	}
	return out
}

// DefaultRules is the built-in table used when no rule set file is configured.
func DefaultRules() []Rule {
	return []Rule{
		{
			Drugs:          [2]string{"Aspirin", "Warfarin"},
			Severity:       SeverityHigh,
			Description:    "Increased risk of bleeding when used together.",
			Recommendation: "Avoid combination or monitor INR closely.",
		},
		{
			Drugs:          [2]string{"Warfarin", "Digoxin"},
			Severity:       SeverityMedium,
			Description:    "May increase risk of bleeding and alter Digoxin levels.",
			Recommendation: "Monitor Digoxin levels and signs of bleeding.",
		},
		{
			Drugs:          [2]string{"Metformin", "Lisinopril"},
			Severity:       SeverityLow,
			Description:    "Minimal risk of interaction. Monitor blood pressure.",
			Recommendation: "Monitor blood pressure.",
		},
		{
			Drugs:          [2]string{"Lisinopril", "Spironolactone"},
			Severity:       SeverityHigh,
			Description:    "Severe hyperkalemia risk from combined potassium retention.",
			Recommendation: "Check serum potassium regularly.",
		},
		{
			Drugs:          [2]string{"Metoprolol", "Albuterol"},
			Severity:       SeverityMedium,
			Description:    "Beta blockade may reduce bronchodilator response.",
			Recommendation: "Prefer a cardioselective dose and review asthma control.",
		},
		{
			Drugs:          [2]string{"Insulin", "Metoprolol"},
			Severity:       SeverityMedium,
			Description:    "Beta blockers can mask the symptoms of hypoglycemia.",
			Recommendation: "Advise more frequent glucose monitoring.",
		},
		{
			Drugs:          [2]string{"Furosemide", "Digoxin"},
			Severity:       SeverityMedium,
			Description:    "Loop diuretic induced hypokalemia increases digoxin toxicity.",
			Recommendation: "Monitor potassium and digoxin levels.",
		},
		{
			Drugs:          [2]string{"Atorvastatin", "Amlodipine"},
			Severity:       SeverityLow,
			Description:    "Amlodipine modestly raises atorvastatin exposure.",
			Recommendation: "No dose change usually needed.",
		},
	}
}

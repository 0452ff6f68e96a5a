package interaction

import (
	"strings"
	"testing"

	"github.com/carechain/carechain/internal/domain/medication"
)

func TestMatch_AspirinWarfarin(t *testing.T) {
	table := NewTable(DefaultRules())
	got := table.Match(medication.NewSet("aspirin", "WARFARIN"))
	if len(got) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(got))
	}
	if got[0].Severity != SeverityHigh {
		t.Errorf("expected High, got %s", got[0].Severity)
	}
	if !strings.HasPrefix(got[0].Explanation, "The combination of Aspirin and Warfarin presents a high risk interaction.") {
		t.Errorf("unexpected explanation %q", got[0].Explanation)
	}
}

func TestMatch_Unordered(t *testing.T) {
	table := NewTable([]Rule{{Drugs: [2]string{"Warfarin", "Aspirin"}, Severity: SeverityHigh}})
	if len(table.Match(medication.NewSet("Aspirin", "Warfarin"))) != 1 {
		t.Error("expected reversed pair to match")
	}
}

func TestMatch_SingleMedication(t *testing.T) {
	table := NewTable(DefaultRules())
	got := table.Match(medication.NewSet("Warfarin"))
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestMatch_NoFuzzyMatching(t *testing.T) {
	table := NewTable(DefaultRules())
	if got := table.Match(medication.NewSet("Aspirin 81", "Warfarins")); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestMatch_TableOrderAndMultiple(t *testing.T) {
	table := NewTable(DefaultRules())
	got := table.Match(medication.NewSet("Digoxin", "Warfarin", "Aspirin"))
	if len(got) != 2 {
		t.Fatalf("expected 2 interactions, got %d", len(got))
	}
	if got[0].Drugs[0] != "Aspirin" || got[1].Drugs[1] != "Digoxin" {
		t.Errorf("expected table order, got %v then %v", got[0].Drugs, got[1].Drugs)
	}
}

func TestMatch_DoesNotMutateTable(t *testing.T) {
	table := NewTable(DefaultRules())
	table.Match(medication.NewSet("Aspirin", "Warfarin"))
	if table.Rules()[0].Explanation != "" {
		t.Error("expected table rule to keep empty explanation")
	}
}

func TestMatch_KeepsOwnExplanation(t *testing.T) {
	table := NewTable([]Rule{{Drugs: [2]string{"A1aa", "B2bb"}, Severity: SeverityLow, Explanation: "custom"}})
	got := table.Match(medication.NewSet("a1aa", "b2bb"))
	if len(got) != 1 || got[0].Explanation != "custom" {
		t.Errorf("expected custom explanation, got %v", got)
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		ok   bool
	}{
		{"valid", Rule{Drugs: [2]string{"A", "B"}, Severity: SeverityLow}, true},
		{"missing drug", Rule{Drugs: [2]string{"A", ""}, Severity: SeverityLow}, false},
		{"self pair", Rule{Drugs: [2]string{"A", "a"}, Severity: SeverityLow}, false},
		{"bad severity", Rule{Drugs: [2]string{"A", "B"}, Severity: "Extreme"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}

func TestInferSeverity(t *testing.T) {
	tests := map[string]Severity{
		"Severe hypotension possible.":      SeverityHigh,
		"High risk of bleeding.":            SeverityHigh,
		"Moderate increase in levels.":      SeverityMedium,
		"Clinically significant effect.":    SeverityMedium,
		"Minimal risk. Monitor blood sugar": SeverityLow,
	}
	for desc, want := range tests {
		if got := InferSeverity(desc); got != want {
			t.Errorf("InferSeverity(%q) = %s, want %s", desc, got, want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if s, err := ParseSeverity(" high "); err != nil || s != SeverityHigh {
		t.Errorf("expected High, got %s %v", s, err)
	}
	if _, err := ParseSeverity("critical"); err == nil {
		t.Error("expected error for unknown severity")
	}
}

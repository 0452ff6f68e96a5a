package interaction

import (
	"strings"
	"testing"
)

func TestLoadCSV(t *testing.T) {
	data := "Drug 1,Drug 2,Interaction Description\n" +
		"Aspirin,Warfarin,Severe bleeding risk. Avoid the combination.\n" +
		"Metformin,Lisinopril,Minimal risk of interaction. Monitor blood pressure.\n" +
		"Aspirin,,orphan row\n" +
		"\"Drug, A\",Drug B,Moderate effect\n"

	rules, err := LoadCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[0].Severity != SeverityHigh || rules[0].Recommendation != "Avoid the combination." {
		t.Errorf("unexpected first rule %+v", rules[0])
	}
	if rules[1].Severity != SeverityLow || rules[1].Recommendation != "Monitor blood pressure." {
		t.Errorf("unexpected second rule %+v", rules[1])
	}
	if rules[2].Drugs[0] != "Drug, A" || rules[2].Severity != SeverityMedium || rules[2].Recommendation != "" {
		t.Errorf("unexpected third rule %+v", rules[2])
	}
}

func TestLoadCSV_MissingColumn(t *testing.T) {
	if _, err := LoadCSV(strings.NewReader("Drug 1,Drug 2\nA,B\n")); err == nil {
		t.Error("expected error for missing description column")
	}
}

func TestLoadCSV_Empty(t *testing.T) {
	if _, err := LoadCSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

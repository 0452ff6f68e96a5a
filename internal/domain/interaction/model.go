package interaction

import (
	"fmt"
	"strings"
)

// Severity of a drug-drug interaction.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// ParseSeverity accepts the three severities in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// InferSeverity grades a free-text interaction description.
func InferSeverity(description string) Severity {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "high"), strings.Contains(d, "severe"):
		return SeverityHigh
	case strings.Contains(d, "moderate"), strings.Contains(d, "significant"):
		return SeverityMedium
	}
	return SeverityLow
}

// Rule is a known interaction between an unordered pair of drugs.
type Rule struct {
	Drugs          [2]string `json:"drugs"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation,omitempty"`
	Explanation    string    `json:"explanation,omitempty"`
}

// Involves reports whether drug is one side of the pair.
func (r Rule) Involves(drug string) bool {
	return strings.EqualFold(r.Drugs[0], drug) || strings.EqualFold(r.Drugs[1], drug)
}

// Explain builds the explanation shown when the rule has none of its own.
func (r Rule) Explain() string {
	if r.Explanation != "" {
		return r.Explanation
	}
	text := fmt.Sprintf("The combination of %s and %s presents a %s risk interaction. %s",
		r.Drugs[0], r.Drugs[1], strings.ToLower(string(r.Severity)), r.Description)
	if r.Recommendation != "" {
		text += " " + r.Recommendation
	}
	return text
}

// Validate checks that the rule names two distinct drugs and a known severity.
func (r Rule) Validate() error {
	a, b := strings.TrimSpace(r.Drugs[0]), strings.TrimSpace(r.Drugs[1])
	if a == "" || b == "" {
		return fmt.Errorf("interaction needs two drugs, got %q and %q", r.Drugs[0], r.Drugs[1])
	}
	if strings.EqualFold(a, b) {
		return fmt.Errorf("interaction pairs %q with itself", a)
	}
	if _, err := ParseSeverity(string(r.Severity)); err != nil {
		return fmt.Errorf("interaction %s/%s: %w", a, b, err)
	}
	return nil
}

// RecommendationFrom returns the text after the first sentence of description.
func RecommendationFrom(description string) string {
	_, rest, ok := strings.Cut(description, ".")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

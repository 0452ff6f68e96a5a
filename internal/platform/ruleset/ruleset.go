// Package ruleset loads the versioned heuristic tables used by the risk core:
// stop words, companion drugs, interaction rules and system scoring tables.
package ruleset

import (
	"fmt"
	"strings"

	"github.com/carechain/carechain/internal/domain/interaction"
	"github.com/carechain/carechain/internal/domain/medication"
	"github.com/carechain/carechain/internal/domain/risk"
)

// DefaultVersion identifies the built-in tables.
const DefaultVersion = "builtin-1"

// RuleSet is one version of every heuristic table.
type RuleSet struct {
	Version      string             `json:"version"`
	Source       string             `json:"source"`
	Medication   medication.Rules   `json:"medication"`
	Risk         risk.Rules         `json:"risk"`
	Interactions []interaction.Rule `json:"interactions"`
}

// Default returns the built-in rule set.
func Default() *RuleSet {
	return &RuleSet{
		Version:      DefaultVersion,
		Source:       "builtin",
		Medication:   medication.DefaultRules(),
		Risk:         risk.DefaultRules(),
		Interactions: interaction.DefaultRules(),
	}
}

// Validate checks the tables for entries the engines cannot use.
func (rs *RuleSet) Validate() error {
	if strings.TrimSpace(rs.Version) == "" {
		return fmt.Errorf("rule set version is required")
	}
	if rs.Medication.MinTokenLength < 1 {
		return fmt.Errorf("medication.min_token_length must be at least 1, got %d", rs.Medication.MinTokenLength)
	}
	for i, c := range rs.Medication.Companions {
		if strings.TrimSpace(c.Drug) == "" || strings.TrimSpace(c.Companion) == "" {
			return fmt.Errorf("medication.companions[%d]: drug and companion are required", i)
		}
	}
	seen := make(map[string]bool, len(rs.Risk.Systems))
	for i, s := range rs.Risk.Systems {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("risk.systems[%d]: name is required", i)
		}
		if seen[strings.ToLower(name)] {
			return fmt.Errorf("risk.systems[%d]: duplicate system %q", i, name)
		}
		seen[strings.ToLower(name)] = true
	}
	for i, r := range rs.Interactions {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("interactions[%d]: %w", i, err)
		}
	}
	return nil
}

// Engines bundles the components built from one rule set.
type Engines struct {
	Version   string
	Extractor *medication.Extractor
	Table     *interaction.Table
	Scorer    *risk.Scorer
}

// Build constructs the extractor, interaction table and scorer.
func (rs *RuleSet) Build() *Engines {
	return &Engines{
		Version:   rs.Version,
		Extractor: medication.NewExtractor(rs.Medication),
		Table:     interaction.NewTable(rs.Interactions),
		Scorer:    risk.NewScorer(rs.Risk),
	}
}

// Summary describes the rule set without dumping its tables.
type Summary struct {
	Version      string `json:"version"`
	Source       string `json:"source"`
	StopWords    int    `json:"stop_words"`
	Companions   int    `json:"companions"`
	Interactions int    `json:"interactions"`
	Systems      int    `json:"systems"`
}

func (rs *RuleSet) Summary() Summary {
	return Summary{
		Version:      rs.Version,
		Source:       rs.Source,
		StopWords:    len(rs.Medication.StopWords),
		Companions:   len(rs.Medication.Companions),
		Interactions: len(rs.Interactions),
		Systems:      len(rs.Risk.Systems),
	}
}

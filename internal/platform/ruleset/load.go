package ruleset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/carechain/carechain/internal/domain/interaction"
	"github.com/carechain/carechain/internal/domain/medication"
	"github.com/carechain/carechain/internal/domain/risk"
)

// file is the on-disk layout. Sections left out of the file keep the
// built-in tables; a section that is present replaces them.
type file struct {
	Version         string            `mapstructure:"version"`
	Medication      *medication.Rules `mapstructure:"medication"`
	Risk            *risk.Rules       `mapstructure:"risk"`
	Interactions    []ruleEntry       `mapstructure:"interactions"`
	InteractionsCSV string            `mapstructure:"interactions_csv"`
}

type ruleEntry struct {
	Drugs          []string `mapstructure:"drugs"`
	Severity       string   `mapstructure:"severity"`
	Description    string   `mapstructure:"description"`
	Recommendation string   `mapstructure:"recommendation"`
	Explanation    string   `mapstructure:"explanation"`
}

// Load reads a rule set from a YAML, JSON or TOML file. interactions_csv, if
// set, is resolved relative to the file and its rows are appended after the
// inline interactions.
func Load(path string) (*RuleSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rule set %s: %w", path, err)
	}

	var f file
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decode rule set %s: %w", path, err)
	}

	rs := Default()
	rs.Version = f.Version
	rs.Source = path
	if f.Medication != nil {
		rs.Medication = *f.Medication
		if rs.Medication.MinTokenLength == 0 {
			rs.Medication.MinTokenLength = medication.DefaultRules().MinTokenLength
		}
	}
	if f.Risk != nil {
		rs.Risk = *f.Risk
	}

	if v.IsSet("interactions") || f.InteractionsCSV != "" {
		rules, err := f.interactionRules()
		if err != nil {
			return nil, fmt.Errorf("rule set %s: %w", path, err)
		}
		if f.InteractionsCSV != "" {
			csvRules, err := loadCSV(filepath.Join(filepath.Dir(path), f.InteractionsCSV))
			if err != nil {
				return nil, fmt.Errorf("rule set %s: %w", path, err)
			}
			rules = append(rules, csvRules...)
		}
		rs.Interactions = rules
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	return rs, nil
}

// LoadOrDefault loads path, or returns the built-in rule set when path is empty.
func LoadOrDefault(path string) (*RuleSet, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (f file) interactionRules() ([]interaction.Rule, error) {
	out := make([]interaction.Rule, 0, len(f.Interactions))
	for i, e := range f.Interactions {
		if len(e.Drugs) != 2 {
			return nil, fmt.Errorf("interactions[%d]: expected 2 drugs, got %d", i, len(e.Drugs))
		}
		sev := interaction.InferSeverity(e.Description)
		if e.Severity != "" {
			parsed, err := interaction.ParseSeverity(e.Severity)
			if err != nil {
				return nil, fmt.Errorf("interactions[%d]: %w", i, err)
			}
			sev = parsed
		}
		rec := e.Recommendation
		if rec == "" {
			rec = interaction.RecommendationFrom(e.Description)
		}
		out = append(out, interaction.Rule{
			Drugs:          [2]string{e.Drugs[0], e.Drugs[1]},
			Severity:       sev,
			Description:    e.Description,
			Recommendation: rec,
			Explanation:    e.Explanation,
		})
	}
	return out, nil
}

func loadCSV(path string) ([]interaction.Rule, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open interactions csv: %w", err)
	}
	defer fh.Close()
	return interaction.LoadCSV(fh)
}

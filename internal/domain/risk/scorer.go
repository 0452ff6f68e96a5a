package risk

import (
	"strings"

	"github.com/carechain/carechain/internal/domain/interaction"
)

// Levels derived from a score.
const (
	LevelHigh     = "High"
	LevelModerate = "Moderate"
	LevelLow      = "Low"
)

// SystemScore is the score of one organ system.
type SystemScore struct {
	System string `json:"system"`
	Score  int    `json:"score"`
}

// Profile is the computed risk of one patient.
type Profile struct {
	OverallScore int            `json:"overall_score"`
	Level        string         `json:"level"`
	SystemScores map[string]int `json:"system_scores"`
	Systems      []SystemScore  `json:"systems"`
	RiskFactors  []string       `json:"risk_factors"`
}

// Scorer computes risk profiles. It is safe for concurrent use.
type Scorer struct {
	rules Rules
}

func NewScorer(rules Rules) *Scorer {
	return &Scorer{rules: rules}
}

// Score computes the profile for a free-text medical history and the
// interactions matched on the patient's medications.
func (s *Scorer) Score(history string, interactions []interaction.Rule) Profile {
	overall := s.Overall(history, interactions)
	systems := s.SystemScores(history, interactions)

	byName := make(map[string]int, len(systems))
	for _, sys := range systems {
		byName[sys.System] = sys.Score
	}
	return Profile{
		OverallScore: overall,
		Level:        Level(overall),
		SystemScores: byName,
		Systems:      systems,
		RiskFactors:  s.RiskFactors(history),
	}
}

// Overall is the headline score. Only the strongest severity present counts.
func (s *Scorer) Overall(history string, interactions []interaction.Rule) int {
	score := BaseScore
	if s.IsDiabetic(history) {
		score = DiabeticBaseScore
	}

	var high, medium bool
	for _, in := range interactions {
		switch in.Severity {
		case interaction.SeverityHigh:
			high = true
		case interaction.SeverityMedium:
			medium = true
		}
	}
	switch {
	case high:
		score += HighBonus
	case medium:
		score += MediumBonus
	}
	return clamp(score)
}

// SystemScores scores every configured system in configuration order.
func (s *Scorer) SystemScores(history string, interactions []interaction.Rule) []SystemScore {
	h := strings.ToLower(history)
	out := make([]SystemScore, 0, len(s.rules.Systems))
	for _, sys := range s.rules.Systems {
		score := SystemBaseScore
		if containsAny(h, sys.Keywords) {
			score += KeywordBonus
		}
		for _, in := range interactions {
			if involvesAny(in, sys.Drugs) {
				score += DrugBonus
			}
		}
		out = append(out, SystemScore{System: sys.Name, Score: clamp(score)})
	}
	return out
}

// RiskFactors turns the history into display factors.
func (s *Scorer) RiskFactors(history string) []string {
	var parts []string
	switch {
	case strings.Contains(history, ","):
		parts = strings.Split(history, ",")
	case strings.Contains(history, ";"):
		parts = strings.Split(history, ";")
	default:
		parts = []string{history}
	}

	factors := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !containsAny(strings.ToLower(p), s.rules.HistoryMarkers) {
			p = historyPrefix + p
		}
		factors = append(factors, p)
	}
	if s.IsDiabetic(history) {
		factors = append(factors, FamilyHistoryOfDiabetes)
	}
	if len(factors) == 0 {
		factors = append(factors, NoSignificantHistory)
	}
	return factors
}

// IsDiabetic reports whether the history mentions a diabetes term.
func (s *Scorer) IsDiabetic(history string) bool {
	return containsAny(strings.ToLower(history), s.rules.DiabetesTerms)
}

// Level buckets a score for display.
func Level(score int) string {
	switch {
	case score >= 80:
		return LevelHigh
	case score >= 60:
		return LevelModerate
	}
	return LevelLow
}

func clamp(score int) int {
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func involvesAny(in interaction.Rule, drugs []string) bool {
	for _, d := range drugs {
		if in.Involves(d) {
			return true
		}
	}
	return false
}

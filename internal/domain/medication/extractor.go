package medication

import (
	"strings"
	"unicode"

	"github.com/carechain/carechain/internal/domain/prescription"
)

const trailingPunctuation = ".,;:!?)]}\"'"

// Extractor derives the set of medications a patient is on from their
// prescription history.
type Extractor struct {
	rules Rules
	stop  map[string]struct{}
}

func NewExtractor(rules Rules) *Extractor {
	stop := make(map[string]struct{}, len(rules.StopWords))
	for _, w := range rules.StopWords {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Extractor{rules: rules, stop: stop}
}

// Extract collects structured medicine names, mines free text of prescriptions
// that have no structured lines, then applies companion rules.
func (x *Extractor) Extract(records []prescription.Record) *Set {
	set := NewSet()
	for _, r := range records {
		for _, l := range r.Medications {
			set.Add(l.Medicine)
		}
		set.Add(r.Medication)
	}
	for _, r := range records {
		if r.HasStructuredLines() {
			continue
		}
		for _, tok := range x.tokens(r.PrescriptionText) {
			set.Add(tok)
		}
	}
	x.addCompanions(set)
	return set
}

// FromText mines a single free-text prescription. Companion rules apply.
func (x *Extractor) FromText(text string) *Set {
	set := NewSet(x.tokens(text)...)
	x.addCompanions(set)
	return set
}

func (x *Extractor) tokens(text string) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		if isNumeric(tok) || len([]rune(tok)) < x.rules.MinTokenLength {
			continue
		}
		if _, ok := x.stop[strings.ToLower(tok)]; ok {
			continue
		}
		if tok = strings.TrimRight(tok, trailingPunctuation); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func (x *Extractor) addCompanions(set *Set) {
	for _, c := range x.rules.Companions {
		if set.Contains(c.Drug) {
			set.Add(c.Companion)
		}
	}
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return tok != ""
}

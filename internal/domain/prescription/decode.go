package prescription

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carechain/carechain/internal/domain/record"
)

// Decode parses a raw record from a prescription stream.
func Decode(raw record.RawRecord) (Record, error) {
	var r Record
	if err := record.DecodeInto(raw, &r); err != nil {
		return Record{}, err
	}
	if r.Medications == nil {
		r.Medications = []MedicationLine{}
	}
	return r, nil
}

// DecodeAll decodes every raw record, returning the valid records in input
// order together with the errors of the ones that were skipped.
func DecodeAll(raws []record.RawRecord) ([]Record, []error) {
	out := make([]Record, 0, len(raws))
	var errs []error
	for _, raw := range raws {
		r, err := Decode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("prescription %s: %w", raw.Key, err))
			continue
		}
		out = append(out, r)
	}
	return out, errs
}

// NewID returns a prescription identifier of the form P followed by eight
// upper-case hex digits.
func NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate prescription id: %w", err)
	}
	return "P" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]), nil
}

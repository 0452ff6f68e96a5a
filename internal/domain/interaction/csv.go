package interaction

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSV column headers of the interaction dataset.
const (
	ColumnDrug1       = "Drug 1"
	ColumnDrug2       = "Drug 2"
	ColumnDescription = "Interaction Description"
)

// LoadCSV reads an interaction dataset with Drug 1, Drug 2 and Interaction
// Description columns. Severity is inferred from the description and the
// recommendation is whatever follows its first sentence. Rows with an empty
// drug are skipped.
func LoadCSV(r io.Reader) ([]Rule, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("interaction csv: missing header")
		}
		return nil, fmt.Errorf("interaction csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, want := range []string{ColumnDrug1, ColumnDrug2, ColumnDescription} {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("interaction csv: missing column %q", want)
		}
	}

	var rules []Rule
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("interaction csv line %d: %w", line, err)
		}
		a, b := field(row, cols[ColumnDrug1]), field(row, cols[ColumnDrug2])
		if a == "" || b == "" || strings.EqualFold(a, b) {
			continue
		}
		desc := field(row, cols[ColumnDescription])
		rules = append(rules, Rule{
			Drugs:          [2]string{a, b},
			Severity:       InferSeverity(desc),
			Description:    desc,
			Recommendation: RecommendationFrom(desc),
		})
	}
	return rules, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

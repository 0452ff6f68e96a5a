// Package export renders risk rosters as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/carechain/carechain/internal/domain/risk"
)

// ContentType of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName of the roster sheet.
const SheetName = "Risk Roster"

// Row is one patient line of the roster.
type Row struct {
	Name           string
	Email          string
	Age            string
	Gender         string
	BloodGroup     string
	OverallScore   int
	Level          string
	Systems        map[string]int
	Interactions   int
	ExpiringSoon   int
	RiskFactors    []string
	RuleSetVersion string
}

// SystemColumns are the organ systems given a column, in order.
var SystemColumns = []string{risk.Cardiovascular, risk.Respiratory, risk.Endocrine, risk.Renal}

func headers() []string {
	h := []string{"Name", "Email", "Age", "Gender", "Blood Group", "Overall Score", "Risk Level"}
	h = append(h, SystemColumns...)
	return append(h, "Interactions", "Expiring Prescriptions", "Risk Factors", "Rule Set")
}

func (r Row) values() []interface{} {
	v := []interface{}{r.Name, r.Email, r.Age, r.Gender, r.BloodGroup, r.OverallScore, r.Level}
	for _, s := range SystemColumns {
		v = append(v, r.Systems[s])
	}
	return append(v, r.Interactions, r.ExpiringSoon, strings.Join(r.RiskFactors, "; "), r.RuleSetVersion)
}

// Roster builds an xlsx workbook with a styled, frozen header and one row per
// patient.
func Roster(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	hs := headers()
	for col, h := range hs {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(hs))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "C", last, 14); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	for i, r := range rows {
		for col, v := range r.values() {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package prescription

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one prescription or checkup as stored in a patient's stream.
type Record struct {
	ID               string           `json:"id"`
	PatientID        string           `json:"patient_id,omitempty"`
	Email            string           `json:"email,omitempty"`
	Date             string           `json:"date"`
	Doctor           string           `json:"doctor"`
	Hospital         string           `json:"hospital,omitempty"`
	Condition        string           `json:"condition,omitempty"`
	DoctorAnalysis   string           `json:"doctorAnalysis,omitempty"`
	Medications      []MedicationLine `json:"medications"`
	Medication       string           `json:"medication,omitempty"`
	PrescriptionText string           `json:"prescriptionText,omitempty"`
	CreatedAt        string           `json:"created_at,omitempty"`
}

// HasStructuredLines reports whether the record carries any medication line
// with a medicine name.
func (r Record) HasStructuredLines() bool {
	for _, l := range r.Medications {
		if strings.TrimSpace(l.Medicine) != "" {
			return true
		}
	}
	return false
}

// MedicationLine is a single structured entry of a prescription.
type MedicationLine struct {
	Medicine  string   `json:"medicine"`
	Dosage    string   `json:"dosage"`
	Frequency string   `json:"frequency"`
	Timing    string   `json:"timing"`
	Days      FlexText `json:"days"`
}

// FlexText accepts both JSON strings and numbers. The checkup form has
// submitted "days" in either form.
type FlexText string

func (f *FlexText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexText(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexText(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

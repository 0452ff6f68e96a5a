package report

import (
	"errors"
	"time"

	"github.com/carechain/carechain/internal/domain/interaction"
	"github.com/carechain/carechain/internal/domain/medication"
	"github.com/carechain/carechain/internal/domain/prescription"
	"github.com/carechain/carechain/internal/domain/record"
	"github.com/carechain/carechain/internal/domain/risk"
)

var (
	// ErrNotFound is returned when no patient matches a key.
	ErrNotFound = errors.New("patient not found")
	// ErrPrescriptionNotFound is returned when a patient has no prescription
	// with the requested id.
	ErrPrescriptionNotFound = errors.New("prescription not found")
	// ErrInvalid wraps validation failures of submitted data.
	ErrInvalid = errors.New("invalid request")
)

// Report is the aggregated risk view of one patient.
type Report struct {
	Patient        record.PatientSnapshot `json:"patient"`
	RuleSetVersion string                 `json:"rule_set_version"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Risk           risk.Profile           `json:"risk"`
	Medications    *medication.Set        `json:"medications"`
	Interactions   []InteractionView      `json:"interactions"`
	Prescriptions  []PrescriptionStatus   `json:"prescriptions"`
	ExpiringSoon   int                    `json:"expiring_soon"`
	SkippedRecords int                    `json:"skipped_records"`
}

// InteractionView is a matched rule with the condition each drug was
// prescribed for.
type InteractionView struct {
	interaction.Rule
	Conditions [2]string `json:"conditions"`
}

// PrescriptionStatus is a prescription with its lifecycle at report time.
type PrescriptionStatus struct {
	prescription.Record
	Lifecycle prescription.Lifecycle `json:"lifecycle"`
}

// RosterEntry is one row of a doctor's patient list.
type RosterEntry struct {
	record.PatientSnapshot
	Username  string `json:"username"`
	RiskLevel string `json:"risk_level"`
}

// Checkup is a new prescription submitted by a doctor.
type Checkup struct {
	Date             string                        `json:"date"`
	Doctor           string                        `json:"doctor"`
	Hospital         string                        `json:"hospital"`
	Condition        string                        `json:"condition"`
	DoctorAnalysis   string                        `json:"doctorAnalysis"`
	Medications      []prescription.MedicationLine `json:"medications"`
	PrescriptionText string                        `json:"prescriptionText"`
}

// InteractionCheck asks which interactions apply to a list of medications
// and, optionally, free prescription text.
type InteractionCheck struct {
	Medications []string `json:"medications"`
	Text        string   `json:"text"`
}

// InteractionResult answers an InteractionCheck.
type InteractionResult struct {
	Medications  *medication.Set    `json:"medications"`
	Interactions []interaction.Rule `json:"interactions"`
}

// MedicationSearch answers a medication name search.
type MedicationSearch struct {
	Query       string   `json:"query"`
	Medications []string `json:"medications"`
}

package record

import "strings"

// Defaults substituted for patient fields that are absent from a payload.
const (
	DefaultName        = "Unknown"
	DefaultUserID      = "Unknown"
	DefaultDemographic = "N/A"
)

// RawRecord is one entry of an append-only stream: a hex-encoded JSON payload
// and the commit time the source assigned to it (unix seconds).
type RawRecord struct {
	Key            string `json:"key,omitempty"`
	EncodedPayload []byte `json:"encoded_payload"`
	CommitTime     int64  `json:"commit_time"`
}

// PatientSnapshot is one version of a patient's profile.
type PatientSnapshot struct {
	IdentityKey       string   `json:"identity_key"`
	UserID            string   `json:"user_id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Age               string   `json:"age"`
	Gender            string   `json:"gender"`
	BloodGroup        string   `json:"blood_group"`
	MedicalIssues     string   `json:"medical_issues"`
	AuthorizedDoctors []string `json:"authorized_doctors"`
	CommitTime        int64    `json:"commit_time"`
}

// Username is the local part of the patient's email address. Prescription
// streams are named after it.
func (p PatientSnapshot) Username() string {
	if i := strings.IndexByte(p.Email, '@'); i > 0 {
		return p.Email[:i]
	}
	return p.Email
}

// AuthorizedFor reports whether doctorEmail is in the patient's authorized list.
func (p PatientSnapshot) AuthorizedFor(doctorEmail string) bool {
	for _, d := range p.AuthorizedDoctors {
		if strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(doctorEmail)) {
			return true
		}
	}
	return false
}

// IdentityKey normalizes an email address into the key snapshots are grouped by.
func IdentityKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// patientPayload is the JSON written by the patient app. Age has been stored
// both as a number and as a string, so it is decoded loosely.
type patientPayload struct {
	UserID            string   `json:"userId"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Age               any      `json:"age"`
	Gender            string   `json:"gender"`
	BloodGroup        string   `json:"bloodGroup"`
	MedicalIssues     string   `json:"medicalIssues"`
	AuthorizedDoctors []string `json:"authorized_doctors"`
}

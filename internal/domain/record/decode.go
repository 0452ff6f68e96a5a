package record

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decode stages reported by DecodeError.
const (
	StageHex  = "hex"
	StageUTF8 = "utf8"
	StageJSON = "json"
)

// DecodeError is returned when a payload cannot be turned into a record.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errNotObject = errors.New("payload is not a JSON object")

// DecodePayload interprets encoded as hex pairs and checks that the result is
// UTF-8 text.
func DecodePayload(encoded []byte) ([]byte, error) {
	out := make([]byte, hex.DecodedLen(len(encoded)))
	n, err := hex.Decode(out, encoded)
	if err != nil {
		return nil, &DecodeError{Stage: StageHex, Err: err}
	}
	out = out[:n]
	if !utf8.Valid(out) {
		return nil, &DecodeError{Stage: StageUTF8, Err: fmt.Errorf("payload is not valid UTF-8")}
	}
	return out, nil
}

// EncodePayload is the inverse of DecodePayload for a JSON document.
func EncodePayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	out := make([]byte, hex.EncodedLen(len(data)))
	hex.Encode(out, data)
	return out, nil
}

// DecodeInto decodes raw's payload as a JSON object into v.
func DecodeInto(raw RawRecord, v any) error {
	text, err := DecodePayload(raw.EncodedPayload)
	if err != nil {
		return err
	}
	if trimmed := bytes.TrimSpace(text); len(trimmed) == 0 || trimmed[0] != '{' {
		return &DecodeError{Stage: StageJSON, Err: errNotObject}
	}
	if err := json.Unmarshal(text, v); err != nil {
		return &DecodeError{Stage: StageJSON, Err: err}
	}
	return nil
}

// Decode turns a raw record from the patient stream into a snapshot. Fields
// missing from the payload take their documented defaults.
func Decode(raw RawRecord) (PatientSnapshot, error) {
	var p patientPayload
	if err := DecodeInto(raw, &p); err != nil {
		return PatientSnapshot{}, err
	}

	email := strings.TrimSpace(p.Email)
	if email == "" {
		email = strings.TrimSpace(raw.Key)
	}

	s := PatientSnapshot{
		IdentityKey:       IdentityKey(email),
		UserID:            orDefault(p.UserID, DefaultUserID),
		Name:              orDefault(p.Name, DefaultName),
		Email:             email,
		Age:               orDefault(ageString(p.Age), DefaultDemographic),
		Gender:            orDefault(p.Gender, DefaultDemographic),
		BloodGroup:        orDefault(p.BloodGroup, DefaultDemographic),
		MedicalIssues:     strings.TrimSpace(p.MedicalIssues),
		AuthorizedDoctors: p.AuthorizedDoctors,
		CommitTime:        raw.CommitTime,
	}
	if s.AuthorizedDoctors == nil {
		s.AuthorizedDoctors = []string{}
	}
	return s, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func ageString(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case float64:
		return strconv.FormatFloat(a, 'f', -1, 64)
	default:
		return ""
	}
}

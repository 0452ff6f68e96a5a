package record

import (
	"encoding/hex"
	"errors"
	"testing"
)

func hexRaw(payload string, commit int64) RawRecord {
	return RawRecord{EncodedPayload: []byte(hex.EncodeToString([]byte(payload))), CommitTime: commit}
}

func TestDecode_PatientPayload(t *testing.T) {
	raw := hexRaw(`{"userId":"U1","name":"Asha","email":"Asha@Example.com","age":42,"gender":"F","bloodGroup":"O+","medicalIssues":" diabetes ","authorized_doctors":["dr@clinic.org"]}`, 100)

	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IdentityKey != "asha@example.com" {
		t.Errorf("expected identity key asha@example.com, got %q", s.IdentityKey)
	}
	if s.Age != "42" {
		t.Errorf("expected age 42, got %q", s.Age)
	}
	if s.MedicalIssues != "diabetes" {
		t.Errorf("expected trimmed medical issues, got %q", s.MedicalIssues)
	}
	if s.CommitTime != 100 {
		t.Errorf("expected commit time 100, got %d", s.CommitTime)
	}
	if !s.AuthorizedFor("DR@clinic.org") {
		t.Error("expected doctor to be authorized")
	}
	if s.Username() != "Asha" {
		t.Errorf("expected username Asha, got %q", s.Username())
	}
}

func TestDecode_MissingFieldsTakeDefaults(t *testing.T) {
	s, err := Decode(hexRaw(`{"email":"p@x.io"}`, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != DefaultName || s.UserID != DefaultUserID {
		t.Errorf("expected Unknown name and user id, got %q / %q", s.Name, s.UserID)
	}
	if s.Age != "N/A" || s.Gender != "N/A" || s.BloodGroup != "N/A" {
		t.Errorf("expected N/A demographics, got %q %q %q", s.Age, s.Gender, s.BloodGroup)
	}
	if s.AuthorizedDoctors == nil || len(s.AuthorizedDoctors) != 0 {
		t.Errorf("expected empty authorized doctors, got %v", s.AuthorizedDoctors)
	}
}

func TestDecode_FallsBackToStreamKey(t *testing.T) {
	raw := hexRaw(`{"name":"No Email"}`, 1)
	raw.Key = "key@x.io"
	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IdentityKey != "key@x.io" {
		t.Errorf("expected identity from stream key, got %q", s.IdentityKey)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		stage   string
	}{
		{"odd length", []byte("abc"), StageHex},
		{"non hex", []byte("zz"), StageHex},
		{"invalid utf8", []byte("ff"), StageUTF8},
		{"not json", []byte(hex.EncodeToString([]byte("hello"))), StageJSON},
		{"empty", []byte(""), StageJSON},
		{"null", []byte(hex.EncodeToString([]byte("null"))), StageJSON},
		{"array", []byte(hex.EncodeToString([]byte(`[{"email":"a@x.io"}]`))), StageJSON},
		{"string", []byte(hex.EncodeToString([]byte(`"a@x.io"`))), StageJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(RawRecord{EncodedPayload: tt.payload})
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if de.Stage != tt.stage {
				t.Errorf("expected stage %s, got %s", tt.stage, de.Stage)
			}
		})
	}
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	enc, err := EncodePayload(map[string]string{"email": "a@b.c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := Decode(RawRecord{EncodedPayload: enc})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Email != "a@b.c" {
		t.Errorf("expected a@b.c, got %q", s.Email)
	}
}

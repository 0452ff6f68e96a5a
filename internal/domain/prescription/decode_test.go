package prescription

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/carechain/carechain/internal/domain/record"
)

func rawOf(payload string) record.RawRecord {
	return record.RawRecord{EncodedPayload: []byte(hex.EncodeToString([]byte(payload)))}
}

func TestDecode_StructuredLines(t *testing.T) {
	r, err := Decode(rawOf(`{"id":"P1","date":"2024-05-01","medications":[{"medicine":"Metformin","dosage":"500mg","days":30},{"medicine":"Aspirin","days":"7"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Medications) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(r.Medications))
	}
	if r.Medications[0].Days != "30" || r.Medications[1].Days != "7" {
		t.Errorf("unexpected days: %q %q", r.Medications[0].Days, r.Medications[1].Days)
	}
	if !r.HasStructuredLines() {
		t.Error("expected structured lines")
	}
}

func TestDecode_NoLines(t *testing.T) {
	r, err := Decode(rawOf(`{"id":"P2","prescriptionText":"Warfarin 5mg"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Medications == nil {
		t.Error("expected empty, non-nil medications")
	}
	if r.HasStructuredLines() {
		t.Error("expected no structured lines")
	}
}

func TestDecodeAll_SkipsBadRecords(t *testing.T) {
	out, errs := DecodeAll([]record.RawRecord{rawOf(`{"id":"P1"}`), {Key: "bad", EncodedPayload: []byte("xyz")}})
	if len(out) != 1 || len(errs) != 1 {
		t.Fatalf("expected 1 record and 1 error, got %d and %d", len(out), len(errs))
	}
	if !strings.Contains(errs[0].Error(), "bad") {
		t.Errorf("expected error to name the key, got %v", errs[0])
	}
}

func TestDecode_RejectsNonObjectPayloads(t *testing.T) {
	for _, payload := range []string{`null`, `[1]`, `42`} {
		if _, err := Decode(rawOf(payload)); err == nil {
			t.Errorf("%s: expected decode error", payload)
		}
	}
}

func TestNewID(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 9 || id[0] != 'P' || strings.ToUpper(id) != id {
		t.Errorf("unexpected id format %q", id)
	}
}

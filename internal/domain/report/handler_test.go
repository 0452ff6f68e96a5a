package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/carechain/carechain/internal/domain/prescription"
	"github.com/carechain/carechain/internal/platform/export"
	"github.com/carechain/carechain/internal/platform/ruleset"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	h := NewHandler(newTestService(t, seededSource(t)))
	h.now = func() time.Time { return testNow }
	return h, echo.New()
}

func keyContext(e *echo.Echo, method, target, body, key string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if key != "" {
		c.SetParamNames("key")
		c.SetParamValues(key)
	}
	return c, rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_ListPatients(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/api/v1/patients?limit=1", "", "")

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data    []RosterEntry `json:"data"`
		Total   int           `json:"total"`
		HasMore bool          `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page: total=%d len=%d has_more=%v", resp.Total, len(resp.Data), resp.HasMore)
	}
	if resp.Data[0].Username != "asha" || resp.Data[0].RiskLevel != "High" {
		t.Errorf("unexpected first entry %+v", resp.Data[0])
	}
}

func TestHandler_ListPatients_OffsetPastEnd(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/api/v1/patients?offset=10", "", "")

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty page, got %s", rec.Body.String())
	}
}

func TestHandler_ListPatients_MaxOffset(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/api/v1/patients?offset=9223372036854775807", "", "")

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"data":[]`) || !strings.Contains(body, `"has_more":false`) {
		t.Errorf("expected empty last page, got %s", body)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "ravi")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"email":"ravi@x.io"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e := newTestHandler(t)
	c, _ := keyContext(e, http.MethodGet, "/", "", "ghost")

	if code := httpCode(t, h.GetPatient(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_GetRiskReport(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "asha@x.io")

	if err := h.GetRiskReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		RuleSetVersion string `json:"rule_set_version"`
		Risk           struct {
			OverallScore int    `json:"overall_score"`
			Level        string `json:"level"`
		} `json:"risk"`
		ExpiringSoon int `json:"expiring_soon"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Risk.OverallScore != 90 || body.Risk.Level != "High" {
		t.Errorf("unexpected risk %+v", body.Risk)
	}
	if body.RuleSetVersion != ruleset.DefaultVersion || body.ExpiringSoon != 1 {
		t.Errorf("unexpected report header %+v", body)
	}
}

func TestHandler_GetRiskReport_ReferenceTime(t *testing.T) {
	h, e := newTestHandler(t)

	// Both prescriptions have expired by October.
	c, rec := keyContext(e, http.MethodGet, "/?at=2024-10-01", "", "asha@x.io")
	if err := h.GetRiskReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"expiring_soon":0`) {
		t.Errorf("expected no expiring prescriptions, got %s", rec.Body.String())
	}

	c, _ = keyContext(e, http.MethodGet, "/?at=yesterday", "", "asha@x.io")
	if code := httpCode(t, h.GetRiskReport(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_GetRiskReport_SourceDown(t *testing.T) {
	src := seededSource(t)
	src.failOn = DefaultPatientStream
	h := NewHandler(newTestService(t, src))
	c, _ := keyContext(echo.New(), http.MethodGet, "/", "", "asha@x.io")

	if code := httpCode(t, h.GetRiskReport(c)); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}

func TestHandler_GetDrugInteractions(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "asha")

	if err := h.GetDrugInteractions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Warfarin") || !strings.Contains(body, `"conditions"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHandler_ListPrescriptions(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "asha")

	if err := h.ListPrescriptions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []PrescriptionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].ID != "P2" {
		t.Errorf("unexpected prescriptions %+v", items)
	}
}

func prescriptionContext(e *echo.Echo, key, id string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := keyContext(e, http.MethodGet, "/", "", "")
	c.SetParamNames("key", "id")
	c.SetParamValues(key, id)
	return c, rec
}

func TestHandler_GetPrescription(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := prescriptionContext(e, "asha", "P2")

	if err := h.GetPrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p PrescriptionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "P2" || p.Lifecycle.State != prescription.StateActive {
		t.Errorf("unexpected prescription %+v", p)
	}
}

func TestHandler_GetPrescription_NotFound(t *testing.T) {
	h, e := newTestHandler(t)

	c, _ := prescriptionContext(e, "asha", "P9")
	if code := httpCode(t, h.GetPrescription(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown prescription, got %d", code)
	}
	c, _ = prescriptionContext(e, "ghost", "P1")
	if code := httpCode(t, h.GetPrescription(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown patient, got %d", code)
	}
}

func TestHandler_SearchMedications(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/api/v1/medications/search?q=lis", "", "")

	if err := h.SearchMedications(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp MedicationSearch
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Query != "lis" || len(resp.Medications) != 1 || resp.Medications[0] != "Lisinopril" {
		t.Errorf("unexpected search response %+v", resp)
	}
}

func TestHandler_SubmitCheckup(t *testing.T) {
	h, e := newTestHandler(t)
	body := `{"doctor":"Dr. Rao","condition":"asthma","medications":[{"medicine":"Albuterol","days":5}]}`
	c, rec := keyContext(e, http.MethodPost, "/", body, "ravi@x.io")

	if err := h.SubmitCheckup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"date":"2024-06-15"`) {
		t.Errorf("expected today's date, got %s", rec.Body.String())
	}
}

func TestHandler_SubmitCheckup_BadRequest(t *testing.T) {
	h, e := newTestHandler(t)
	c, _ := keyContext(e, http.MethodPost, "/", `{"doctor":"Dr. Rao"}`, "ravi@x.io")

	if code := httpCode(t, h.SubmitCheckup(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_CheckInteractions(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodPost, "/", `{"medications":["Lisinopril","Spironolactone"]}`, "")

	if err := h.CheckInteractions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Spironolactone") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_GetRules(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "")

	if err := h.GetRules(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), ruleset.DefaultVersion) {
		t.Errorf("expected rule set version in %s", rec.Body.String())
	}
}

func TestHandler_ExportRoster(t *testing.T) {
	h, e := newTestHandler(t)
	c, rec := keyContext(e, http.MethodGet, "/", "", "")

	if err := h.ExportRoster(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != export.ContentType {
		t.Errorf("expected %s, got %s", export.ContentType, ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(rows))
	}
}

func TestRegisterRoutes(t *testing.T) {
	h, e := newTestHandler(t)
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/patients":                        false,
		"GET /api/v1/patients/:key/risk-report":       false,
		"POST /api/v1/patients/:key/prescriptions":    false,
		"POST /api/v1/interactions/check":             false,
		"GET /api/v1/medications/search":              false,
		"GET /api/v1/patients/:key/prescriptions/:id": false,
		"GET /api/v1/patients/export.xlsx":            false,
	}
	for _, r := range e.Routes() {
		k := r.Method + " " + r.Path
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", k)
		}
	}
}

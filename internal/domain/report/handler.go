package report

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carechain/carechain/internal/platform/export"
	"github.com/carechain/carechain/pkg/pagination"
)

type Handler struct {
	svc *Service
	now func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/export.xlsx", h.ExportRoster)
	api.GET("/patients/:key", h.GetPatient)
	api.GET("/patients/:key/risk-report", h.GetRiskReport)
	api.GET("/patients/:key/drug-interactions", h.GetDrugInteractions)
	api.GET("/patients/:key/prescriptions", h.ListPrescriptions)
	api.GET("/patients/:key/prescriptions/:id", h.GetPrescription)
	api.POST("/patients/:key/prescriptions", h.SubmitCheckup)
	api.GET("/medications/search", h.SearchMedications)
	api.POST("/interactions/check", h.CheckInteractions)
	api.GET("/rules", h.GetRules)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	roster, err := h.svc.Roster(c.Request().Context(), c.QueryParam("doctor_email"))
	if err != nil {
		return toHTTPError(err)
	}
	start, end := pg.Window(len(roster))
	return c.JSON(http.StatusOK, pagination.NewResponse(roster[start:end], len(roster), pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Patient(c.Request().Context(), c.Param("key"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetRiskReport(c echo.Context) error {
	at, err := h.referenceTime(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Build(c.Request().Context(), c.Param("key"), at)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) GetDrugInteractions(c echo.Context) error {
	r, err := h.svc.Build(c.Request().Context(), c.Param("key"), h.now())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"medications":  r.Medications,
		"interactions": r.Interactions,
	})
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	at, err := h.referenceTime(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Prescriptions(c.Request().Context(), c.Param("key"), at)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	at, err := h.referenceTime(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Prescription(c.Request().Context(), c.Param("key"), c.Param("id"), at)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SearchMedications(c echo.Context) error {
	q := c.QueryParam("q")
	return c.JSON(http.StatusOK, MedicationSearch{Query: q, Medications: h.svc.SearchMedications(q)})
}

func (h *Handler) SubmitCheckup(c echo.Context) error {
	var req Checkup
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rec, err := h.svc.SubmitCheckup(c.Request().Context(), c.Param("key"), req, h.now())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) CheckInteractions(c echo.Context) error {
	var req InteractionCheck
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.JSON(http.StatusOK, h.svc.CheckInteractions(req))
}

func (h *Handler) GetRules(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Rules())
}

func (h *Handler) ExportRoster(c echo.Context) error {
	reports, err := h.svc.RosterReports(c.Request().Context(), c.QueryParam("doctor_email"), h.now())
	if err != nil {
		return toHTTPError(err)
	}
	data, err := export.Roster(RosterRows(reports))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="risk-roster.xlsx"`)
	return c.Blob(http.StatusOK, export.ContentType, data)
}

// referenceTime reads the optional ?at= query parameter (RFC 3339 or a date).
func (h *Handler) referenceTime(c echo.Context) (time.Time, error) {
	at := strings.TrimSpace(c.QueryParam("at"))
	if at == "" {
		return h.now(), nil
	}
	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", at); err == nil {
		return t, nil
	}
	return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid at parameter %q", at))
}

// RosterRows flattens reports into export rows.
func RosterRows(reports []*Report) []export.Row {
	rows := make([]export.Row, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, export.Row{
			Name:           r.Patient.Name,
			Email:          r.Patient.Email,
			Age:            r.Patient.Age,
			Gender:         r.Patient.Gender,
			BloodGroup:     r.Patient.BloodGroup,
			OverallScore:   r.Risk.OverallScore,
			Level:          r.Risk.Level,
			Systems:        r.Risk.SystemScores,
			Interactions:   len(r.Interactions),
			ExpiringSoon:   r.ExpiringSoon,
			RiskFactors:    r.Risk.RiskFactors,
			RuleSetVersion: r.RuleSetVersion,
		})
	}
	return rows
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPrescriptionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "record source unavailable").SetInternal(err)
	}
}

package clinical

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/brainalyze/brainalyze/internal/platform/auth"
	"github.com/brainalyze/brainalyze/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient, auth.RequireRole("radiologist", "admin"))

	api.GET("/patients/:id/cases", h.ListCases)
	api.DELETE("/patients/:id/cases/:caseId", h.DeleteCase, auth.RequireRole("radiologist", "admin"))

	api.GET("/cases/:id", h.GetCase)
	api.PUT("/cases/:id/plan", h.UpdateTreatmentPlan)
	api.POST("/cases/:id/close", h.CloseCase)
	api.GET("/cases/:id/diagnosis", h.ResolveDiagnosis)
	api.GET("/cases/:id/scans", h.ListScans)
}

// domainError maps the service error taxonomy onto HTTP statuses.
func domainError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// callerID resolves the acting radiologist from the authenticated request.
func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.RadiologistIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated radiologist")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// -- Patients --

func (h *Handler) CreatePatient(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), owner, &p); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	owner, err := callerID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), owner, pg.Limit, pg.Offset)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatientCascade(c.Request().Context(), id); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Cases --

func (h *Handler) ListCases(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	views, err := h.svc.ListCasesForPatient(c.Request().Context(), patientID)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cs, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) UpdateTreatmentPlan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		TreatmentPlan string `json:"treatment_plan"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.UpdateTreatmentPlan(c.Request().Context(), id, body.TreatmentPlan); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CloseCase(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		EndDate string `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CloseCase(c.Request().Context(), id, body.EndDate); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResolveDiagnosis(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	diagnosis, err := h.svc.ResolveDiagnosis(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"diagnosis": diagnosis})
}

func (h *Handler) DeleteCase(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	caseID, err := pathID(c, "caseId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCase(c.Request().Context(), caseID, patientID); err != nil {
		return domainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Scans --

func (h *Handler) ListScans(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	scans, err := h.svc.ListScansForCase(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, scans)
}

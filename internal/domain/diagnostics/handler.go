package diagnostics

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/brainalyze/brainalyze/internal/domain/clinical"
	"github.com/brainalyze/brainalyze/internal/platform/auth"
	"github.com/brainalyze/brainalyze/internal/platform/inference"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/scans", h.UploadScan)
	api.GET("/scans/:id", h.GetScan)
	api.POST("/scans/:id/segment", h.RunSegmentation)
	api.GET("/scans/:id/image", h.artifact(ArtifactImage))
	api.GET("/scans/:id/heatmap", h.artifact(ArtifactHeatmap))
	api.GET("/scans/:id/mask", h.artifact(ArtifactMask))
}

func domainError(err error) error {
	switch {
	case errors.Is(err, clinical.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, clinical.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, clinical.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, inference.ErrImageDecode):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, inference.ErrModelUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// UploadScan accepts a multipart form with an "image" file plus optional
// "case_id", "description", and "treatment_plan" fields. Omitting case_id
// starts a new case founded on this scan.
func (h *Handler) UploadScan(c echo.Context) error {
	patientID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	radiologistID, err := uuid.Parse(auth.RadiologistIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated radiologist")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read image file")
	}
	defer file.Close()

	req := UploadRequest{
		PatientID:     patientID,
		RadiologistID: radiologistID,
		Filename:      fileHeader.Filename,
		Description:   c.FormValue("description"),
		TreatmentPlan: c.FormValue("treatment_plan"),
		Image:         file,
	}
	if raw := c.FormValue("case_id"); raw != "" {
		caseID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid case_id")
		}
		req.CaseID = caseID
	}

	result, err := h.svc.UploadScan(c.Request().Context(), req)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetScan(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	scan, err := h.svc.clinical.GetScan(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, scan)
}

func (h *Handler) RunSegmentation(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	scan, err := h.svc.RunSegmentation(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, scan)
}

func (h *Handler) artifact(kind string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		rc, contentType, err := h.svc.OpenArtifact(c.Request().Context(), id, kind)
		if err != nil {
			return domainError(err)
		}
		defer rc.Close()
		return c.Stream(http.StatusOK, contentType, rc)
	}
}

package diagnostics

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/brainalyze/brainalyze/internal/domain/clinical"
	"github.com/brainalyze/brainalyze/internal/platform/inference"
)

func TestDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: missing field", clinical.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("scan: %w", clinical.ErrNotFound), http.StatusNotFound},
		{"unauthorized", fmt.Errorf("case: %w", clinical.ErrUnauthorized), http.StatusForbidden},
		{"undecodable image", fmt.Errorf("classify scan: %w", inference.ErrImageDecode), http.StatusUnprocessableEntity},
		{"model unavailable", fmt.Errorf("classify scan: %w", inference.ErrModelUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr, ok := domainError(tt.err).(*echo.HTTPError)
			if !ok {
				t.Fatal("expected echo.HTTPError")
			}
			if httpErr.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, httpErr.Code)
			}
		})
	}
}

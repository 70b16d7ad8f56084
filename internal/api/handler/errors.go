package handler

import (
	"errors"
	"net/http"

	"github.com/kiranshivaraju/copydesk/internal/api/response"
	"github.com/kiranshivaraju/copydesk/internal/lifecycle"
)

// writeLifecycleError maps coordinator errors to status codes.
func writeLifecycleError(w http.ResponseWriter, err error) {
	details := map[string]string{"reason": err.Error()}
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
	case errors.Is(err, lifecycle.ErrSubmission):
		response.Error(w, http.StatusBadGateway, "SUBMISSION_FAILED", "Failed to submit content", details)
	case errors.Is(err, lifecycle.ErrNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	case errors.Is(err, lifecycle.ErrService):
		response.Error(w, http.StatusBadGateway, "SERVICE_ERROR", "The optimizer service request failed", details)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

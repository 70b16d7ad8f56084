package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/copydesk/internal/api/response"
	"github.com/kiranshivaraju/copydesk/internal/lifecycle"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

const maxSubmitBodyBytes = 1 << 20

// Submitter starts a new job.
type Submitter interface {
	Submit(ctx context.Context, in lifecycle.SubmitInput) (*models.Job, error)
}

// Selector makes a job the selected one.
type Selector interface {
	Select(ctx context.Context, id string) (*models.Job, error)
}

// Deleter removes a job.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewSubmitHandler(s Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lifecycle.SubmitInput
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBodyBytes)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := s.Submit(r.Context(), req)
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		response.Accepted(w, newJobView(*job))
	}
}

// NewSelectHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/select.
func NewSelectHandler(s Selector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.Select(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		response.JSON(w, newJobView(*job))
	}
}

// NewDeleteHandler returns an http.HandlerFunc for DELETE /api/v1/jobs/{jobID}.
func NewDeleteHandler(d Deleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Delete(r.Context(), chi.URLParam(r, "jobID")); err != nil {
			writeLifecycleError(w, err)
			return
		}
		response.NoContent(w)
	}
}

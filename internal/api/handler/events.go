package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/copydesk/internal/api/response"
	"github.com/kiranshivaraju/copydesk/internal/journal"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 200
)

// EventLister returns recent lifecycle events, newest first.
type EventLister interface {
	Events(ctx context.Context, limit int) ([]journal.Event, error)
}

// NewEventsHandler returns an http.HandlerFunc for GET /api/v1/events.
func NewEventsHandler(l EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultEventsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = min(n, maxEventsLimit)
		}

		events, err := l.Events(r.Context(), limit)
		if err != nil {
			writeLifecycleError(w, err)
			return
		}
		response.List(w, events, response.ListMeta{Limit: limit, Count: len(events)})
	}
}

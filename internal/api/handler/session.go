package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/copydesk/internal/api/response"
	"github.com/kiranshivaraju/copydesk/internal/state"
)

// Snapshotter exposes the current session state.
type Snapshotter interface {
	Snapshot() state.Snapshot
}

// Refresher reloads history and stats and exposes the result.
type Refresher interface {
	Snapshotter
	Refresh(ctx context.Context)
}

// NewSessionHandler returns an http.HandlerFunc for GET /api/v1/session.
func NewSessionHandler(s Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, newSessionView(s.Snapshot()))
	}
}

// NewRefreshHandler returns an http.HandlerFunc for POST /api/v1/history/refresh.
// Refresh failures leave the previous values in place and are not reported.
func NewRefreshHandler(s Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Refresh(r.Context())
		response.Accepted(w, newSessionView(s.Snapshot()))
	}
}

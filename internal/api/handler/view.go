package handler

import (
	"github.com/kiranshivaraju/copydesk/internal/state"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// JobView is a job as rendered to the UI. Failed jobs carry the message to
// display.
type JobView struct {
	models.Job
	DisplayError string `json:"failure_message,omitempty"`
}

// SessionView is the read-only session snapshot.
type SessionView struct {
	Selected     *JobView      `json:"selected"`
	History      []JobView     `json:"history"`
	Stats        *models.Stats `json:"stats"`
	IsSubmitting bool          `json:"is_submitting"`
}

func newJobView(job models.Job) JobView {
	v := JobView{Job: job}
	if job.Status == models.JobStatusFailed {
		v.DisplayError = job.FailureMessage()
	}
	return v
}

func newSessionView(snap state.Snapshot) SessionView {
	v := SessionView{
		History:      make([]JobView, 0, len(snap.History)),
		Stats:        snap.Stats,
		IsSubmitting: snap.IsSubmitting,
	}
	if snap.Selected != nil {
		sel := newJobView(*snap.Selected)
		v.Selected = &sel
	}
	for _, j := range snap.History {
		v.History = append(v.History, newJobView(j))
	}
	return v
}

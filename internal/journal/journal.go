// Package journal keeps an append-only log of job lifecycle events observed
// by the session: submissions, selections, terminal transitions and deletes.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names a lifecycle event.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindSelected  Kind = "selected"
	KindTerminal  Kind = "terminal"
	KindDeleted   Kind = "deleted"
)

// DefaultRecentLimit is used by Recent when limit is not positive.
const DefaultRecentLimit = 50

// Event is one journal row.
type Event struct {
	ID        uuid.UUID `json:"id"`
	JobID     string    `json:"job_id"`
	Kind      Kind      `json:"kind"`
	Status    string    `json:"status"`
	Detail    *string   `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent builds an Event with a fresh id and timestamp.
func NewEvent(jobID string, kind Kind, status string) Event {
	return Event{
		ID:        uuid.New(),
		JobID:     jobID,
		Kind:      kind,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// WithDetail returns a copy of e carrying detail.
func (e Event) WithDetail(detail string) Event {
	e.Detail = &detail
	return e
}

// Journal is the lifecycle log interface. Implementations must be safe for
// concurrent use.
type Journal interface {
	Record(ctx context.Context, e Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	Ping(ctx context.Context) error
}

// Nop discards every event. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func (Nop) Recent(context.Context, int) ([]Event, error) { return []Event{}, nil }

func (Nop) Ping(context.Context) error { return nil }

var _ Journal = Nop{}

// Package lifecycle turns user intents into remote calls and store writes:
// submit, select, delete and the history and stats refreshes.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/journal"
	"github.com/kiranshivaraju/copydesk/internal/optimizer"
	"github.com/kiranshivaraju/copydesk/internal/state"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

const (
	DefaultHistoryLimit = 20

	journalTimeout = 5 * time.Second
)

// SnapshotSaver persists the last observed history and stats so a restarted
// session has something to show before its first refresh returns.
type SnapshotSaver interface {
	SaveHistory(ctx context.Context, jobs []models.Job) error
	SaveStats(ctx context.Context, stats models.Stats) error
}

// Config for the Coordinator.
type Config struct {
	HistoryLimit int
}

// SubmitInput is a submit intent as entered by the user.
type SubmitInput struct {
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"content_type"`
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithJournal records lifecycle events to j.
func WithJournal(j journal.Journal) Option {
	return func(c *Coordinator) {
		if j != nil {
			c.journal = j
		}
	}
}

// WithSnapshots saves every successful history and stats refresh to s.
func WithSnapshots(s SnapshotSaver) Option {
	return func(c *Coordinator) {
		c.snapshots = s
	}
}

// Coordinator drives the job lifecycle. It never polls; the status loop is
// armed by the poller reacting to the selected-job writes made here.
type Coordinator struct {
	client    optimizer.Client
	store     *state.Store
	journal   journal.Journal
	snapshots SnapshotSaver
	cfg       Config
	logger    *slog.Logger

	historyGate refreshGate
	statsGate   refreshGate
}

// New creates a Coordinator and subscribes it to selected-job changes so
// terminal transitions are journaled.
func New(client optimizer.Client, st *state.Store, cfg Config, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	c := &Coordinator{
		client:  client,
		store:   st,
		journal: journal.Nop{},
		cfg:     cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	st.OnSelectedChanged(c.onSelectedChanged)
	return c
}

// Submit validates the input, submits it and selects an optimistic
// processing job built from the input and the returned id.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*models.Job, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if in.ContentType == "" {
		in.ContentType = models.ContentTypeArticle
	}
	if !in.ContentType.Valid() {
		return nil, fmt.Errorf("%w: content_type must be one of article, social_post, ad_copy; got %q",
			ErrValidation, in.ContentType)
	}

	done := c.store.BeginSubmit()
	defer done()

	intent := c.store.NextIntent()
	resp, err := c.client.Submit(ctx, optimizer.SubmitRequest{
		Title:       in.Title,
		Content:     in.Content,
		ContentType: in.ContentType,
	})
	if err != nil {
		c.logger.Warn("submit failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	stub := models.Job{
		ID:          resp.JobID,
		Title:       in.Title,
		Content:     in.Content,
		ContentType: in.ContentType,
		Status:      models.JobStatusProcessing,
		CreatedAt:   time.Now().UTC(),
	}
	if !c.store.SetSelected(stub, intent) {
		c.logger.Debug("submit response overtaken by a later selection", "job_id", stub.ID)
	}

	c.logger.Info("job submitted", "job_id", stub.ID, "content_type", stub.ContentType)
	c.record(journal.NewEvent(stub.ID, journal.KindSubmitted, stub.Status))
	return &stub, nil
}

// Select fetches the authoritative record for id and makes it the selected
// job, whatever was selected before.
func (c *Coordinator) Select(ctx context.Context, id string) (*models.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: job id is required", ErrValidation)
	}

	intent := c.store.NextIntent()
	job, err := c.client.GetJob(ctx, id)
	if err != nil {
		return nil, c.mapServiceError("select", id, err)
	}

	if !c.store.SetSelected(*job, intent) {
		c.logger.Debug("select response overtaken by a later selection", "job_id", id)
	}

	c.record(journal.NewEvent(job.ID, journal.KindSelected, job.Status))
	return job, nil
}

// Delete removes id from the service. If it is the selected job the
// selection is cleared. History and stats are refreshed afterwards.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: job id is required", ErrValidation)
	}

	intent := c.store.NextIntent()
	if err := c.client.DeleteJob(ctx, id); err != nil {
		return c.mapServiceError("delete", id, err)
	}

	c.store.ClearSelected(id, intent)
	c.logger.Info("job deleted", "job_id", id)
	c.record(journal.NewEvent(id, journal.KindDeleted, ""))

	c.Refresh(ctx)
	return nil
}

// Refresh reloads history and stats. Failures are logged and leave the
// previous values in place.
func (c *Coordinator) Refresh(ctx context.Context) {
	if err := c.RefreshHistory(ctx); err != nil {
		c.logger.Warn("history refresh failed", "error", err)
	}
	if err := c.RefreshStats(ctx); err != nil {
		c.logger.Warn("stats refresh failed", "error", err)
	}
}

// RefreshHistory replaces the history with the service's newest jobs. On
// failure the history is left as it was.
func (c *Coordinator) RefreshHistory(ctx context.Context) error {
	_, err := c.historyGate.do(ctx, func() error {
		jobs, err := c.client.ListJobs(ctx, c.cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("%w: list jobs: %w", ErrService, err)
		}
		c.store.ReplaceHistory(jobs)

		if c.snapshots != nil {
			if err := c.snapshots.SaveHistory(ctx, jobs); err != nil {
				c.logger.Warn("save history snapshot failed", "error", err)
			}
		}
		return nil
	})
	return err
}

// RefreshStats replaces the aggregate stats. On failure the stats are left
// as they were.
func (c *Coordinator) RefreshStats(ctx context.Context) error {
	_, err := c.statsGate.do(ctx, func() error {
		stats, err := c.client.Stats(ctx)
		if err != nil {
			return fmt.Errorf("%w: stats: %w", ErrService, err)
		}
		c.store.ReplaceStats(*stats)

		if c.snapshots != nil {
			if err := c.snapshots.SaveStats(ctx, *stats); err != nil {
				c.logger.Warn("save stats snapshot failed", "error", err)
			}
		}
		return nil
	})
	return err
}

// Snapshot returns the current session state.
func (c *Coordinator) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// Events returns the newest journal entries.
func (c *Coordinator) Events(ctx context.Context, limit int) ([]journal.Event, error) {
	events, err := c.journal.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: journal: %w", ErrService, err)
	}
	return events, nil
}

func (c *Coordinator) mapServiceError(op, id string, err error) error {
	if errors.Is(err, optimizer.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.logger.Warn(op+" failed", "job_id", id, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrService, op, id, err)
}

// onSelectedChanged journals a processing job of the selection becoming
// terminal, whichever write observed it.
func (c *Coordinator) onSelectedChanged(prev, next *models.Job) {
	if prev == nil || next == nil || prev.ID != next.ID {
		return
	}
	if prev.IsTerminal() || !next.IsTerminal() {
		return
	}

	e := journal.NewEvent(next.ID, journal.KindTerminal, next.Status)
	if next.Status == models.JobStatusFailed {
		e = e.WithDetail(next.FailureMessage())
	}
	c.record(e)
}

func (c *Coordinator) record(e journal.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := c.journal.Record(ctx, e); err != nil {
		c.logger.Warn("journal record failed", "job_id", e.JobID, "kind", e.Kind, "error", err)
	}
}

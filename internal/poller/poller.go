// Package poller runs the two background refresh loops of a session: the
// status poll for the selected in-flight job and the aggregate stats poll.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/copydesk/internal/optimizer"
	"github.com/kiranshivaraju/copydesk/internal/state"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// ErrTransientPoll wraps failures of background poll ticks. These are only
// logged; the next tick retries naturally.
var ErrTransientPoll = errors.New("transient poll failure")

const (
	DefaultStatusInterval = 3 * time.Second
	DefaultStatsInterval  = 30 * time.Second
)

// maxFinished bounds the set of ids observed terminal. The oldest id is
// forgotten first.
const maxFinished = 1024

// Refresher reloads the history and stats views. It is satisfied by
// lifecycle.Coordinator.
type Refresher interface {
	RefreshHistory(ctx context.Context) error
	RefreshStats(ctx context.Context) error
}

// Config controls poll cadence.
type Config struct {
	StatusInterval time.Duration
	StatsInterval  time.Duration
}

// Poller owns the status and stats loops. The status loop is armed iff the
// selected job is processing; Reconcile re-evaluates that on every change of
// the selected job. The stats loop runs from Start until Stop.
type Poller struct {
	client    optimizer.Client
	store     *state.Store
	refresher Refresher
	cfg       Config
	logger    *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	status   *statusLoop
	finished map[string]struct{}
	order    []string
	wg       sync.WaitGroup
}

// statusLoop is the handle of the armed status poll.
type statusLoop struct {
	jobID  string
	cancel context.CancelFunc
}

// New creates a Poller and subscribes it to selected-job changes of st.
func New(client optimizer.Client, st *state.Store, refresher Refresher, cfg Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = DefaultStatsInterval
	}

	p := &Poller{
		client:    client,
		store:     st,
		refresher: refresher,
		cfg:       cfg,
		logger:    logger,
		finished:  make(map[string]struct{}),
	}
	st.OnSelectedChanged(func(_, _ *models.Job) { p.Reconcile() })
	return p
}

// Start begins the session: an immediate stats and history refresh, the
// periodic stats loop, and a status loop if a processing job is already
// selected. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.ctx != nil {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true
	sessionCtx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	p.logger.Info("poller started",
		"status_interval", p.cfg.StatusInterval.String(),
		"stats_interval", p.cfg.StatsInterval.String())

	go p.runStats(sessionCtx)
	p.Reconcile()
}

// Stop cancels both loops and waits for them to exit. After Stop no poll
// request is issued. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.status = nil
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("poller stopped")
}

// Reconcile arms, re-arms or disarms the status loop to match the selected
// job. It is idempotent and reads the current store state rather than the
// change that triggered it.
func (p *Poller) Reconcile() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	sel := p.store.Selected()

	want := ""
	if sel != nil && sel.Status == models.JobStatusProcessing {
		if _, done := p.finished[sel.ID]; !done {
			want = sel.ID
		}
	}

	if p.status != nil && p.status.jobID != want {
		p.logger.Debug("status poll disarmed", "job_id", p.status.jobID)
		p.status.cancel()
		p.status = nil
	}
	if want != "" && p.status == nil {
		p.arm(want)
	}
}

// ArmedJobID returns the id the status loop is polling, or "".
func (p *Poller) ArmedJobID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return ""
	}
	return p.status.jobID
}

// arm starts a status loop for jobID. Caller holds p.mu.
func (p *Poller) arm(jobID string) {
	ctx, cancel := context.WithCancel(p.ctx)
	p.status = &statusLoop{jobID: jobID, cancel: cancel}
	p.logger.Debug("status poll armed", "job_id", jobID)

	p.wg.Add(1)
	go p.runStatus(ctx, jobID)
}

// runStatus ticks until its context is cancelled. Ticks run on this goroutine,
// so a tick that comes due while a request is outstanding is dropped by the
// ticker instead of issuing a duplicate request.
func (p *Poller) runStatus(ctx context.Context, jobID string) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollStatus(ctx, jobID)
		}
	}
}

// pollStatus performs one status tick for jobID.
func (p *Poller) pollStatus(ctx context.Context, jobID string) {
	ticket := p.store.BeginPoll()

	job, err := p.client.GetJob(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("status poll failed",
			"job_id", jobID,
			"error", fmt.Errorf("%w: %w", ErrTransientPoll, err))
		return
	}
	if job.ID != jobID {
		p.logger.Warn("status poll returned a different job",
			"job_id", jobID, "got_job_id", job.ID)
		return
	}

	terminal := job.IsTerminal()
	if terminal {
		p.markFinished(jobID)
	}

	if !p.store.UpdateSelected(*job, ticket) {
		p.logger.Debug("discarded stale status response", "job_id", jobID, "poll_seq", ticket.Seq)
		if terminal {
			p.Reconcile()
		}
		return
	}

	if terminal {
		p.logger.Info("job reached terminal status", "job_id", jobID, "status", job.Status)
		p.Reconcile()
		p.refreshAfterTerminal()
	}
}

func (p *Poller) markFinished(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.finished[jobID]; ok {
		return
	}
	p.finished[jobID] = struct{}{}
	p.order = append(p.order, jobID)
	if len(p.order) > maxFinished {
		delete(p.finished, p.order[0])
		p.order = p.order[1:]
	}
}

// refreshAfterTerminal does the one-shot history and stats refresh that
// follows a job finishing. It uses the session context since the status
// loop that observed the transition has just been disarmed.
func (p *Poller) refreshAfterTerminal() {
	p.mu.Lock()
	ctx := p.ctx
	running := p.running
	p.mu.Unlock()
	if !running {
		return
	}

	if err := p.refresher.RefreshHistory(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("history refresh failed", "error", fmt.Errorf("%w: %w", ErrTransientPoll, err))
	}
	if err := p.refresher.RefreshStats(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("stats refresh failed", "error", fmt.Errorf("%w: %w", ErrTransientPoll, err))
	}
}

// runStats refreshes stats and history once, then stats on every tick.
func (p *Poller) runStats(ctx context.Context) {
	defer p.wg.Done()

	p.pollStats(ctx)
	if err := p.refresher.RefreshHistory(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("initial history refresh failed", "error", fmt.Errorf("%w: %w", ErrTransientPoll, err))
	}

	ticker := time.NewTicker(p.cfg.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollStats(ctx)
		}
	}
}

func (p *Poller) pollStats(ctx context.Context) {
	if err := p.refresher.RefreshStats(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("stats poll failed", "error", fmt.Errorf("%w: %w", ErrTransientPoll, err))
	}
}

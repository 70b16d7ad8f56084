package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/copydesk/internal/optimizer"
	"github.com/kiranshivaraju/copydesk/pkg/models"
)

// MockClient satisfies optimizer.Client for testing. Each Func field
// overrides the corresponding call; calls are counted per method and per job.
type MockClient struct {
	SubmitFunc    func(ctx context.Context, req optimizer.SubmitRequest) (*optimizer.SubmitResponse, error)
	GetJobFunc    func(ctx context.Context, id string) (*models.Job, error)
	ListJobsFunc  func(ctx context.Context, limit int) ([]models.Job, error)
	DeleteJobFunc func(ctx context.Context, id string) error
	StatsFunc     func(ctx context.Context) (*models.Stats, error)
	InfoFunc      func(ctx context.Context) (*optimizer.ServiceInfo, error)

	mu       sync.Mutex
	calls    map[string]int
	getCalls map[string]int
}

func (m *MockClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was invoked.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// GetJobCalls returns how many times GetJob was invoked for id.
func (m *MockClient) GetJobCalls(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls[id]
}

func (m *MockClient) Submit(ctx context.Context, req optimizer.SubmitRequest) (*optimizer.SubmitResponse, error) {
	m.record("Submit")
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return &optimizer.SubmitResponse{JobID: uuid.NewString(), Status: models.JobStatusProcessing}, nil
}

func (m *MockClient) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.record("GetJob")
	m.mu.Lock()
	if m.getCalls == nil {
		m.getCalls = make(map[string]int)
	}
	m.getCalls[id]++
	m.mu.Unlock()

	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", optimizer.ErrNotFound, id)
}

func (m *MockClient) ListJobs(ctx context.Context, limit int) ([]models.Job, error) {
	m.record("ListJobs")
	if m.ListJobsFunc != nil {
		return m.ListJobsFunc(ctx, limit)
	}
	return []models.Job{}, nil
}

func (m *MockClient) DeleteJob(ctx context.Context, id string) error {
	m.record("DeleteJob")
	if m.DeleteJobFunc != nil {
		return m.DeleteJobFunc(ctx, id)
	}
	return nil
}

func (m *MockClient) Stats(ctx context.Context) (*models.Stats, error) {
	m.record("Stats")
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &models.Stats{}, nil
}

func (m *MockClient) Info(ctx context.Context) (*optimizer.ServiceInfo, error) {
	m.record("Info")
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx)
	}
	return &optimizer.ServiceInfo{Message: "mock", Version: "0.0.0"}, nil
}

// NewMockClient returns a MockClient backed by an in-memory job table.
// Submitted jobs start processing; Complete and Fail move them to a
// terminal state, as the real service's background task would.
func NewMockClient() (*MockClient, *Backend) {
	b := &Backend{jobs: make(map[string]*models.Job)}
	m := &MockClient{
		SubmitFunc: func(_ context.Context, req optimizer.SubmitRequest) (*optimizer.SubmitResponse, error) {
			id := b.add(req)
			return &optimizer.SubmitResponse{JobID: id, Status: models.JobStatusProcessing}, nil
		},
		GetJobFunc: func(_ context.Context, id string) (*models.Job, error) {
			return b.get(id)
		},
		ListJobsFunc: func(_ context.Context, limit int) ([]models.Job, error) {
			return b.list(limit), nil
		},
		DeleteJobFunc: func(_ context.Context, id string) error {
			return b.remove(id)
		},
		StatsFunc: func(_ context.Context) (*models.Stats, error) {
			return b.stats(), nil
		},
	}
	return m, b
}

// Backend is the in-memory job table behind NewMockClient.
type Backend struct {
	mu    sync.Mutex
	jobs  map[string]*models.Job
	order []string
}

// Put inserts or replaces a job.
func (b *Backend) Put(job models.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.jobs[job.ID]; !ok {
		b.order = append(b.order, job.ID)
	}
	b.jobs[job.ID] = job.Clone()
}

// Complete marks a job completed with sample result bundles.
func (b *Backend) Complete(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	j.Status = models.JobStatusCompleted
	j.CompletedAt = &now
	j.Analysis = &models.Analysis{
		ReadabilityScore: 72.4,
		SEOScore:         41.5,
		Tone:             "Professional and Informative",
		KeywordDensity:   map[string]float64{"text": 50},
		WordCount:        len(j.Content),
		SentenceCount:    1,
		Suggestions:      []string{"Improve clarity", "Enhance engagement", "Optimize structure"},
	}
	j.Optimization = &models.Optimization{
		OptimizedContent: "Optimized: " + j.Content,
		Improvements:     []string{"Enhanced readability and flow"},
	}
	j.Variants = &models.Variants{
		VariantA:    "A: " + j.Content,
		VariantB:    "B: " + j.Content,
		Differences: []string{"Variant A: Emotional and narrative-driven approach"},
	}
}

// Fail marks a job failed with msg.
func (b *Backend) Fail(id, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	j.Status = models.JobStatusFailed
	j.CompletedAt = &now
	j.Error = &msg
}

func (b *Backend) add(req optimizer.SubmitRequest) string {
	id := uuid.NewString()
	b.Put(models.Job{
		ID:          id,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Status:      models.JobStatusProcessing,
		CreatedAt:   time.Now().UTC(),
	})
	return id
}

func (b *Backend) get(id string) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	j, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", optimizer.ErrNotFound, id)
	}
	return j.Clone(), nil
}

// list returns jobs newest first.
func (b *Backend) list(limit int) []models.Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Job, 0, len(b.order))
	for i := len(b.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *b.jobs[b.order[i]].Clone())
	}
	return out
}

func (b *Backend) remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", optimizer.ErrNotFound, id)
	}
	delete(b.jobs, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func (b *Backend) stats() *models.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &models.Stats{TotalJobs: len(b.jobs)}
	var readability, seo float64
	for _, j := range b.jobs {
		switch j.Status {
		case models.JobStatusCompleted:
			s.CompletedJobs++
			if j.Analysis != nil {
				readability += j.Analysis.ReadabilityScore
				seo += j.Analysis.SEOScore
			}
		case models.JobStatusProcessing:
			s.ProcessingJobs++
		case models.JobStatusFailed:
			s.FailedJobs++
		}
	}
	if s.CompletedJobs > 0 {
		s.AvgReadabilityScore = readability / float64(s.CompletedJobs)
		s.AvgSEOScore = seo / float64(s.CompletedJobs)
	}
	return s
}

// NewFailingClient returns a MockClient whose every call fails with err.
func NewFailingClient(err error) *MockClient {
	return &MockClient{
		SubmitFunc: func(_ context.Context, _ optimizer.SubmitRequest) (*optimizer.SubmitResponse, error) {
			return nil, err
		},
		GetJobFunc:    func(_ context.Context, _ string) (*models.Job, error) { return nil, err },
		ListJobsFunc:  func(_ context.Context, _ int) ([]models.Job, error) { return nil, err },
		DeleteJobFunc: func(_ context.Context, _ string) error { return err },
		StatsFunc:     func(_ context.Context) (*models.Stats, error) { return nil, err },
		InfoFunc:      func(_ context.Context) (*optimizer.ServiceInfo, error) { return nil, err },
	}
}

// Compile-time check that MockClient implements optimizer.Client.
var _ optimizer.Client = (*MockClient)(nil)

package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/pkg/queue"
)

type stubLoader []models.Review

func (s stubLoader) Load(context.Context) []models.Review { return s }

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) UploadExport(_ context.Context, key string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return "https://example/" + key, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil, ctx.Err()
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeQueue) Retry(_ context.Context, job *queue.Job) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return job.Attempt >= queue.MaxRetries, nil
}

func (f *fakeQueue) retries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

var exportedAt = time.Date(2025, 11, 8, 18, 0, 0, 0, time.UTC)

func sample() stubLoader {
	ts := time.Date(2025, 11, 8, 17, 0, 0, 0, time.UTC)
	return stubLoader{
		{ID: "p1", Email: "a@b.com", Message: "great", Sentiment: models.SentimentPositive, Timestamp: ts},
		{ID: "n1", Email: "c@d.com", Message: "bad", Sentiment: models.SentimentNegative, Timestamp: ts},
	}
}

func exportJob(t *testing.T, filter models.FilterMode) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeExportReviews, queue.ExportPayload{Filter: filter, RequestedBy: "alice"})
	require.NoError(t, err)
	return job
}

func TestProcess_PositiveExport(t *testing.T) {
	up := &fakeUploader{}
	p := NewExportProcessor(sample(), up, &fakeQueue{}, clockwork.NewFakeClockAt(exportedAt), nil)

	key, err := p.Process(context.Background(), exportJob(t, models.FilterPositive))
	require.NoError(t, err)
	assert.Equal(t, "exports/20251108T180000Z-positive.json", key)

	got, err := reviews.Decode(up.objects[key])
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestProcess_AllExport(t *testing.T) {
	up := &fakeUploader{}
	p := NewExportProcessor(sample(), up, &fakeQueue{}, clockwork.NewFakeClockAt(exportedAt), nil)

	key, err := p.Process(context.Background(), exportJob(t, models.FilterAll))
	require.NoError(t, err)
	got, err := reviews.Decode(up.objects[key])
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestProcess_Errors(t *testing.T) {
	up := &fakeUploader{err: errors.New("access denied")}
	p := NewExportProcessor(sample(), up, &fakeQueue{}, clockwork.NewFakeClockAt(exportedAt), nil)
	_, err := p.Process(context.Background(), exportJob(t, models.FilterAll))
	assert.Error(t, err)

	bad, err := queue.NewJob("email", nil)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), bad)
	assert.Error(t, err)
}

func TestRun_ProcessesAndRetries(t *testing.T) {
	up := &fakeUploader{}
	q := &fakeQueue{jobs: []*queue.Job{exportJob(t, models.FilterAll), {ID: "junk", Type: "email"}}}
	clock := clockwork.NewFakeClockAt(exportedAt)
	p := NewExportProcessor(sample(), up, q, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return up.count() == 1 && q.retries() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

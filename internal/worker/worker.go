package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/internal/metrics"
	"github.com/aura-webinar/feedbackhub/internal/models"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/pkg/queue"
	"github.com/aura-webinar/feedbackhub/pkg/storage"
)

// Loader reads the review collection.
type Loader interface {
	Load(ctx context.Context) []models.Review
}

// Uploader stores an export document and returns a download URL.
type Uploader interface {
	UploadExport(ctx context.Context, key string, body io.Reader, contentLength int64) (string, error)
}

// JobQueue is the queue side the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (dead bool, err error)
}

// ExportProcessor processes review export jobs: load the store, filter, encode, upload.
type ExportProcessor struct {
	store    Loader
	uploader Uploader
	queue    JobQueue
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewExportProcessor creates an export processor.
func NewExportProcessor(store Loader, uploader Uploader, q JobQueue, clock clockwork.Clock, logger *zap.Logger) *ExportProcessor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{store: store, uploader: uploader, queue: q, clock: clock, logger: logger}
}

// Process executes one export job and returns the object key it wrote.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) (string, error) {
	payload, err := job.ExportPayload()
	if err != nil {
		return "", err
	}

	list := p.store.Load(ctx)
	if payload.Filter == models.FilterPositive {
		positive := make([]models.Review, 0, len(list))
		for _, r := range list {
			if r.IsPositive() {
				positive = append(positive, r)
			}
		}
		list = positive
	}

	doc, err := reviews.Encode(list)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	key := storage.ExportKey(p.clock.Now(), payload.Filter)
	url, err := p.uploader.UploadExport(ctx, key, bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	p.logger.Info("review export completed",
		zap.String("job_id", job.ID),
		zap.String("requested_by", payload.RequestedBy),
		zap.String("s3_key", key),
		zap.Int("reviews", len(list)),
		zap.String("url", url),
	)
	return key, nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if _, err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			dead, reErr := p.queue.Retry(ctx, job)
			switch {
			case reErr != nil:
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
				metrics.ExportJobsTotal.WithLabelValues("failed").Inc()
			case dead:
				metrics.ExportJobsTotal.WithLabelValues("dead_lettered").Inc()
			default:
				metrics.ExportJobsTotal.WithLabelValues("retried").Inc()
			}
			p.sleep(ctx)
			continue
		}
		metrics.ExportJobsTotal.WithLabelValues("completed").Inc()
	}
}

func (p *ExportProcessor) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-p.clock.After(queue.RetryBackoff):
	}
}

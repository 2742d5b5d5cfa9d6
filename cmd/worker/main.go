// Package main runs the background review export worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/config"
	"github.com/aura-webinar/feedbackhub/internal/bootstrap"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/internal/worker"
	"github.com/aura-webinar/feedbackhub/pkg/queue"
	"github.com/aura-webinar/feedbackhub/pkg/storage"
)

func main() {
	logger := bootstrap.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.ValidateWorker(); err != nil {
		logger.Fatal("worker config", zap.Error(err))
	}

	ctx := context.Background()
	infra, err := bootstrap.Open(ctx, cfg, "worker-"+uuid.NewString(), logger)
	if err != nil {
		logger.Fatal("open infrastructure", zap.Error(err))
	}
	defer infra.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ExportBucket:         cfg.AWS.ExportBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	// The worker only reads, so it needs no change notifications.
	store := reviews.NewStore(infra.Store, cfg.Store.Key, nil, logger)
	jobQueue := queue.NewQueue(infra.Redis.Client, logger)
	processor := worker.NewExportProcessor(store, s3Client, jobQueue, nil, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("bucket", cfg.AWS.ExportBucket))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
	}
	logger.Info("worker stopped")
}

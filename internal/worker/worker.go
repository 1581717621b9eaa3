package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dukira/internal/config"
	"dukira/internal/events"
	"dukira/internal/images"
	"dukira/internal/logger"
	syncsvc "dukira/internal/sync"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/kafka-go"
)

// Worker consumes sync and image events and runs them to completion. It
// also owns the auto-sync schedule.
type Worker struct {
	config   *config.Config
	logger   *logger.Logger
	reader   *kafka.Reader
	syncer   *syncsvc.Service
	pipeline *images.Pipeline
	cron     *cron.Cron
	stop     chan struct{}
}

func New(cfg *config.Config, logger *logger.Logger, syncer *syncsvc.Service, pipeline *images.Pipeline) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{cfg.KafkaBrokers},
		GroupID:        "dukira-worker",
		Topic:          events.Topic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:   cfg,
		logger:   logger,
		reader:   reader,
		syncer:   syncer,
		pipeline: pipeline,
		cron:     cron.New(cron.WithSeconds()),
		stop:     make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.startAutoSync()

	w.logger.Info("Worker started, listening for events...")

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		message, err := w.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Error("Failed to read message: %v", err)
			continue
		}

		var event events.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			w.logger.Error("Failed to parse event: %v", err)
			continue
		}

		if err := w.process(event); err != nil {
			w.logger.Error("Failed to process %s event: %v", event.Type, err)
			continue
		}

		w.logger.Debug("Event %s processed", event.Type)
	}
}

func (w *Worker) process(event events.Event) error {
	ctx := context.Background()

	switch event.Type {
	case events.TypeSyncRequested:
		return w.syncer.RunJob(ctx, event.JobID)
	case events.TypeImagePending:
		return w.pipeline.ProcessImage(ctx, event.ImageID)
	default:
		w.logger.Warn("Unknown event type: %s", event.Type)
		return nil
	}
}

// startAutoSync schedules incremental syncs for auto_sync stores and a
// periodic sweep of images left pending (missed or unacked events).
func (w *Worker) startAutoSync() {
	_, err := w.cron.AddFunc(w.config.AutoSyncSchedule, func() {
		w.logger.Info("Auto-sync sweep starting")
		w.syncer.EnqueueAutoSync(context.Background())
	})
	if err != nil {
		w.logger.Fatal("Invalid auto-sync schedule %q: %v", w.config.AutoSyncSchedule, err)
	}

	_, err = w.cron.AddFunc("0 */5 * * * *", func() {
		if err := w.pipeline.ProcessPendingImages(context.Background(), w.config.ImageBatchSize); err != nil {
			w.logger.Error("Pending image sweep failed: %v", err)
		}
	})
	if err != nil {
		w.logger.Fatal("Failed to schedule pending image sweep: %v", err)
	}

	w.cron.Start()
	w.logger.Info("Auto-sync scheduled (%s)", w.config.AutoSyncSchedule)
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stop)
	w.cron.Stop()
	w.reader.Close()
}

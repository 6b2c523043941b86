package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vidx/shared/cache"
	"vidx/shared/queue"
	"vidx/shared/storage"
	"vidx/worker/internal/config"
	"vidx/worker/internal/database"
	"vidx/worker/internal/media"
	"vidx/worker/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher describes the minimal publishing behaviour Worker needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
	Conn() *queue.Connection
}

// Worker consumes job messages and dispatches them to step processors.
type Worker struct {
	db        *database.DB
	storage   storage.ObjectStorage
	publisher Publisher
	config    *config.Config
	logger    *zap.Logger
	registry  *ProcessorRegistry
}

// New creates a new worker with the default processors registered.
func New(db *database.DB, store storage.ObjectStorage, publisher Publisher, cfg *config.Config, logger *zap.Logger) (*Worker, error) {
	w := &Worker{
		db:        db,
		storage:   store,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		registry:  NewProcessorRegistry(),
	}

	tool := media.NewTool(cfg.FFmpeg.Path, cfg.FFmpeg.FFprobePath, logger)

	nameCache, err := cache.NewNameAudio(cfg.Cache.NameAudioDir, logger)
	if err != nil {
		return nil, err
	}
	cloneCache, err := cache.NewVoiceClone(cfg.Cache.VoiceCloneIndex, logger)
	if err != nil {
		return nil, err
	}

	w.registry.Register(NewPersonalizeProcessor(Deps{
		DB:         db,
		Storage:    store,
		Config:     cfg,
		Logger:     logger,
		Tool:       tool,
		NameCache:  nameCache,
		CloneCache: cloneCache,
	}))
	w.registry.Register(NewConvertProcessor(Deps{
		DB:      db,
		Storage: store,
		Config:  cfg,
		Logger:  logger,
		Tool:    tool,
	}))

	return w, nil
}

// Registry exposes the processor registry (used by cmd wiring and tests).
func (w *Worker) Registry() *ProcessorRegistry {
	return w.registry
}

// StartConsumer starts consuming messages for a specific registered step.
func (w *Worker) StartConsumer(ctx context.Context, step string) error {
	processor, ok := w.registry.Get(step)
	if !ok {
		return fmt.Errorf("no processor registered for step: %s", step)
	}

	conn := w.publisher.Conn()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		queue.ExchangeName(),
		queue.ExchangeType(),
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queueName := fmt.Sprintf("job.%s", step)
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		q.Name,
		queueName,
		queue.ExchangeName(),
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	// One job at a time per consumer; jobs are heavyweight.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.logger.Info("Started consumer", zap.String("step", step), zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping consumer", zap.String("step", step))
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}

			if err := w.processMessage(ctx, processor, msg); err != nil {
				var infra infraError
				if errors.As(err, &infra) {
					// Transient infrastructure failure; redeliver so the
					// job does not sit in queued forever.
					w.logger.Error("Requeueing message after transient failure",
						zap.String("step", step),
						zap.Error(err),
						zap.String("message_id", msg.MessageId),
					)
					_ = msg.Nack(false, true)
				} else {
					w.logger.Error("Failed to process message",
						zap.String("step", step),
						zap.Error(err),
						zap.String("message_id", msg.MessageId),
					)
					// Malformed message; drop it.
					_ = msg.Nack(false, false)
				}
			} else {
				_ = msg.Ack(false)
			}
		}
	}
}

// StartAllConsumers starts consumers for all registered processors.
func (w *Worker) StartAllConsumers(ctx context.Context) {
	for _, step := range w.registry.Names() {
		go func(stepName string) {
			if err := w.StartConsumer(ctx, stepName); err != nil {
				w.logger.Error("Consumer failed", zap.String("step", stepName), zap.Error(err))
			}
		}(step)
	}
}

// processMessage runs one job message through its processor. Processing
// failures are recorded on the job and the message is still acked; jobs
// are never silently re-run because every provider call costs money.
// Failures to even mark the job running come back as infraError so the
// consumer can requeue the delivery.
func (w *Worker) processMessage(ctx context.Context, processor StepProcessor, msg amqp.Delivery) error {
	jobMsg, jobID, err := decodeJobMessage(msg.Body)
	if err != nil {
		return err
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeouts.Job)
	defer cancel()

	w.logger.Info("Processing job",
		zap.String("step", processor.Name()),
		zap.String("job_id", jobID.String()),
		zap.String("trace_id", jobMsg.TraceID),
	)

	if err := w.MarkJobRunning(ctx, jobID); err != nil {
		return infraError{err: fmt.Errorf("failed to mark job running: %w", err)}
	}

	if processErr := processor.Process(jobCtx, jobID, jobMsg); processErr != nil {
		errMsg := processErr.Error()
		if err := w.MarkJobFailed(ctx, jobID, errMsg); err != nil {
			w.logger.Error("Failed to record job failure", zap.Error(err))
		}
		w.logger.Error("Job failed",
			zap.String("step", processor.Name()),
			zap.String("job_id", jobID.String()),
			zap.Error(processErr),
		)
	}

	return nil
}

// infraError marks a failure of the infrastructure around a job rather
// than of the job itself. The consumer requeues these deliveries instead
// of dropping them.
type infraError struct {
	err error
}

func (e infraError) Error() string { return e.err.Error() }

func (e infraError) Unwrap() error { return e.err }

func decodeJobMessage(body []byte) (models.JobMessage, uuid.UUID, error) {
	var jobMsg models.JobMessage
	if err := json.Unmarshal(body, &jobMsg); err != nil {
		return models.JobMessage{}, uuid.Nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	jobID, err := uuid.Parse(jobMsg.JobID)
	if err != nil {
		return models.JobMessage{}, uuid.Nil, fmt.Errorf("invalid job_id: %w", err)
	}

	return jobMsg, jobID, nil
}

// MarkJobRunning transitions a job to running.
func (w *Worker) MarkJobRunning(ctx context.Context, jobID uuid.UUID) error {
	query := `UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := w.db.ExecContext(ctx, query, models.StatusRunning, time.Now(), jobID)
	return err
}

// MarkJobFailed transitions a job to failed with the fatal message.
func (w *Worker) MarkJobFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	query := `UPDATE jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`
	_, err := w.db.ExecContext(ctx, query, models.StatusFailed, errMsg, time.Now(), jobID)
	return err
}

// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/streadway/amqp"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// Consumes activity log entries published by the API server and stores them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalw("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if cfg.AMQPURL == "" {
		logger.L().Fatalw("amqp_url_missing")
	}

	conn, err := db.Open(cfg.Database.DSN())
	if err != nil {
		logger.L().Fatalw("db_open_failed", "error", err)
	}
	defer conn.Close()
	repo := &repository.ActivityRepository{DB: conn}

	// Connect to RabbitMQ
	mq, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.L().Fatalw("amqp_dial_failed", "error", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		logger.L().Fatalw("amqp_channel_failed", "error", err)
	}
	defer ch.Close()

	q, err := queue.DeclareQueue(ch, cfg.ActivityQueue)
	if err != nil {
		logger.L().Fatalw("amqp_declare_failed", "queue", cfg.ActivityQueue, "error", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		logger.L().Fatalw("amqp_qos_failed", "error", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.L().Fatalw("amqp_consume_failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.L().Infow("worker_started", "queue", q.Name)
	for {
		select {
		case <-ctx.Done():
			logger.L().Infow("worker_stopping")
			return
		case d, ok := <-msgs:
			if !ok {
				logger.L().Warnw("amqp_channel_closed")
				return
			}
			handleDelivery(ctx, repo, d)
		}
	}
}

// acknowledger is the part of amqp.Delivery the worker settles messages with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, repo repository.ActivityRepositoryInterface, d amqp.Delivery) {
	settle(ctx, repo, d.Body, d.Redelivered, d)
}

// settle stores one entry and acks it. A failed insert is requeued once;
// undecodable or repeatedly failing entries are dropped.
func settle(ctx context.Context, repo repository.ActivityRepositoryInterface, body []byte, redelivered bool, ack acknowledger) {
	err := store(ctx, repo, body)
	var bad *decodeError
	switch {
	case err == nil:
		ack.Ack(false)
	case errors.As(err, &bad):
		logger.L().Warnw("activity_entry_invalid", "error", err)
		ack.Ack(false)
	case !redelivered:
		logger.L().Warnw("activity_entry_requeued", "error", err)
		ack.Nack(false, true)
	default:
		logger.L().Errorw("activity_entry_dropped", "error", err)
		ack.Nack(false, false)
	}
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return fmt.Sprintf("decode activity entry: %v", e.err) }

func store(ctx context.Context, repo repository.ActivityRepositoryInterface, body []byte) error {
	var entry model.ActivityLog
	if err := json.Unmarshal(body, &entry); err != nil {
		return &decodeError{err: err}
	}
	if entry.Action == "" {
		return &decodeError{err: errors.New("missing action")}
	}
	if err := repo.Insert(ctx, &entry); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

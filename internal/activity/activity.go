package activity

import (
	"context"
	"fmt"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/metrics"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
)

const ModuleCampaign = "campaign"

const (
	ActionCreated   = "CREATED"
	ActionUpdated   = "UPDATED"
	ActionDeleted   = "DELETED"
	ActionStarted   = "STARTED"
	ActionTestEmail = "TEST_EMAIL"
)

// Sink stores or forwards one activity entry.
type Sink interface {
	Record(ctx context.Context, entry model.ActivityLog) error
}

// QueueSink hands entries to a queue topic. The consumer persists them.
type QueueSink struct {
	Publisher queue.Publisher
	Topic     string
}

func (s *QueueSink) Record(_ context.Context, entry model.ActivityLog) error {
	return s.Publisher.Publish(s.Topic, entry)
}

// Recorder never fails its caller. Sink errors are logged and counted.
type Recorder struct {
	Sink Sink
}

func (r *Recorder) Record(ctx context.Context, entry model.ActivityLog) {
	if r == nil || r.Sink == nil {
		return
	}
	if entry.Module == "" {
		entry.Module = ModuleCampaign
	}
	if err := r.Sink.Record(ctx, entry); err != nil {
		serr := &appErrors.SinkError{Action: entry.Action, Err: err}
		metrics.ActivitySinkFailures.Inc()
		logger.L().Warnw("activity_sink_failed",
			"action", entry.Action,
			"reference_id", entry.ReferenceID,
			"error", serr.Error(),
		)
	}
}

// Persist returns a queue handler that writes entries through repo.
func Persist(repo repository.ActivityRepositoryInterface) func(payload any) error {
	return func(payload any) error {
		entry, ok := payload.(model.ActivityLog)
		if !ok {
			logger.L().Errorw("activity_payload_dropped", "type", fmt.Sprintf("%T", payload))
			return nil
		}
		return repo.Insert(context.Background(), &entry)
	}
}

// Subscribe wires the in-process queue to the activity table.
func Subscribe(q queue.Queue, topic string, repo repository.ActivityRepositoryInterface) error {
	return q.Subscribe(topic, Persist(repo))
}

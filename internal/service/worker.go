package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/mailer"
	"github.com/unclebandit/crm-backend/internal/metrics"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// Job is everything a worker needs to send one campaign run.
type Job struct {
	CampaignID int64
	RunID      string
	Subject    string
	Body       string
	StaticVars map[string]string
}

// Worker processes recipient records from a channel for one run.
type Worker struct {
	Recipients repository.RecipientRepositoryInterface
	Resolver   *RecipientResolver
	Mailer     mailer.Sender
	Records    <-chan *model.CampaignRecipient
	Job        Job
	Now        func() time.Time
}

func NewWorker(recipients repository.RecipientRepositoryInterface, resolver *RecipientResolver, sender mailer.Sender, records <-chan *model.CampaignRecipient, job Job) *Worker {
	return &Worker{
		Recipients: recipients,
		Resolver:   resolver,
		Mailer:     sender,
		Records:    records,
		Job:        job,
		Now:        time.Now,
	}
}

// Start drains the channel. Every claimed record ends sent or failed before
// the next one is taken.
func (w *Worker) Start(ctx context.Context) {
	for rec := range w.Records {
		w.process(ctx, rec)
	}
}

func (w *Worker) process(ctx context.Context, rec *model.CampaignRecipient) {
	log := logger.L().With("campaign_id", w.Job.CampaignID, "record_id", rec.ID, "run_id", w.Job.RunID)

	claimed, err := w.Recipients.Claim(ctx, rec.ID, w.Job.RunID)
	if err != nil {
		log.Errorw("recipient_claim_failed", "error", err)
		w.fail(ctx, log, rec, "claim failed: "+err.Error())
		return
	}
	if !claimed {
		log.Debugw("recipient_already_claimed")
		return
	}

	res := w.Resolver.ResolveOne(ctx, rec)
	if !res.Sendable() {
		w.fail(ctx, log, rec, res.Err.Reason)
		return
	}

	vars := maps.Clone(w.Job.StaticVars)
	if vars == nil {
		vars = map[string]string{}
	}
	vars["name"] = res.Recipient.Name
	vars["email"] = res.Recipient.Email
	subject, body := RenderTemplate(w.Job.Subject, w.Job.Body, vars)

	started := time.Now()
	err = w.Mailer.Send(ctx, res.Recipient.Email, subject, body)
	metrics.SendDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		w.fail(ctx, log, rec, err.Error())
		return
	}

	if err := retryOnce(func() error {
		_, err := w.Recipients.MarkSent(ctx, rec.ID, w.Now())
		return err
	}); err != nil {
		// The email went out but the record cannot say so; failed keeps it
		// out of pending and carries the reason.
		log.Errorw("recipient_mark_sent_failed", "error", err)
		w.fail(ctx, log, rec, "sent but status update failed: "+err.Error())
		return
	}
	metrics.RecipientsProcessed.WithLabelValues(string(model.RecipientSent)).Inc()
}

func (w *Worker) fail(ctx context.Context, log *zap.SugaredLogger, rec *model.CampaignRecipient, reason string) {
	log.Warnw("recipient_failed", "reason", reason)
	if err := retryOnce(func() error {
		_, err := w.Recipients.MarkFailed(ctx, rec.ID, reason)
		return err
	}); err != nil {
		log.Errorw("recipient_mark_failed_failed", "error", err)
		return
	}
	metrics.RecipientsProcessed.WithLabelValues(string(model.RecipientFailed)).Inc()
}

func retryOnce(fn func() error) error {
	if err := fn(); err == nil {
		return nil
	}
	return fn()
}

// RunPool fans records out to n workers and waits for all of them.
func RunPool(ctx context.Context, n int, records []*model.CampaignRecipient, newWorker func(<-chan *model.CampaignRecipient) *Worker) {
	if n < 1 {
		n = 1
	}
	ch := make(chan *model.CampaignRecipient)

	var wg sync.WaitGroup
	for range n {
		w := newWorker(ch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx)
		}()
	}

	for _, rec := range records {
		ch <- rec
	}
	close(ch)
	wg.Wait()
}

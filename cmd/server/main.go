// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/crm-backend/internal/activity"
	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/controller"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/handler"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/mailer"
	"github.com/unclebandit/crm-backend/internal/queue"
	"github.com/unclebandit/crm-backend/internal/repository"
	"github.com/unclebandit/crm-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalw("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if err := db.Init(cfg.Database.DSN()); err != nil {
		logger.L().Fatalw("db_init_failed", "error", err)
	}
	defer db.DB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender, err := mailer.New(ctx, cfg.Mail)
	if err != nil {
		logger.L().Fatalw("mailer_init_failed", "error", err)
	}

	customerRepo := &repository.CustomerRepository{DB: db.DB}
	leadRepo := &repository.LeadRepository{DB: db.DB}
	userRepo := &repository.UserRepository{DB: db.DB}
	activityRepo := &repository.ActivityRepository{DB: db.DB}

	// Activity entries go to RabbitMQ for cmd/worker when a broker is
	// configured, otherwise straight to Postgres through the in-process queue.
	var publisher queue.Publisher
	if cfg.AMQPURL != "" {
		p, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logger.L().Fatalw("amqp_dial_failed", "error", err)
		}
		defer p.Close()
		publisher = p
	} else {
		q := queue.NewInMemoryQueue()
		if err := activity.Subscribe(q, cfg.ActivityQueue, activityRepo); err != nil {
			logger.L().Fatalw("activity_subscribe_failed", "error", err)
		}
		defer q.Drain()
		publisher = q
	}

	campaignService := &service.CampaignService{
		Tx:            &repository.Store{DB: db.DB},
		CampaignRepo:  &repository.CampaignRepository{DB: db.DB},
		RecipientRepo: &repository.RecipientRepository{DB: db.DB},
		TemplateRepo:  &repository.TemplateRepository{DB: db.DB},
		Resolver:      service.NewRecipientResolver(customerRepo, leadRepo),
		Mailer:        sender,
		Activity:      &activity.Recorder{Sink: &activity.QueueSink{Publisher: publisher, Topic: cfg.ActivityQueue}},
		OrgName:       cfg.OrgName,
		Workers:       cfg.DispatchWorkers,
	}

	router := newRouter(routes{
		Controller: &controller.CampaignController{CampaignService: campaignService},
		Handler:    handler.NewCampaignHandler(campaignService),
		JWTSecret:  []byte(cfg.JWTSecret),
		Users:      userRepo,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Infow("server_started", "addr", srv.Addr, "mail_driver", cfg.Mail.Driver, "workers", cfg.DispatchWorkers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatalw("server_failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.L().Infow("server_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Errorw("server_shutdown_failed", "error", err)
	}
}

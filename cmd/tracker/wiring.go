package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"flight_delay_tracker/internal/app"
	"flight_delay_tracker/internal/domain/clock"
	"flight_delay_tracker/internal/infra/actualsapi"
	"flight_delay_tracker/internal/infra/airports"
	"flight_delay_tracker/internal/infra/config"
	idb "flight_delay_tracker/internal/infra/database"
	"flight_delay_tracker/internal/infra/forecastapi"
	"flight_delay_tracker/internal/infra/logger"
	"flight_delay_tracker/internal/infra/memstore"
	"flight_delay_tracker/internal/infra/metrics"
	"flight_delay_tracker/internal/infra/scheduler"
	"flight_delay_tracker/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/telebot.v3"
)

// application is the fully wired object graph shared by the subcommands.
type application struct {
	cfg      *config.AppConfig
	db       *sql.DB // nil for the memory driver
	registry *prometheus.Registry
	bot      *telebot.Bot

	predictions *app.PredictionService
	runner      *app.JobRunner
	admin       *app.AdminService
	schedule    []scheduler.Entry
}

// buildApplication wires storage, ports, services and jobs. An offline bot skips the
// getMe handshake; it can still send messages.
func buildApplication(ctx context.Context, cfg *config.AppConfig, offline bool) (*application, error) {
	repos, db, err := openRepositories(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics("flight_tracker", registry)

	// External ports. Per-call deadlines come from the callers' contexts.
	httpClient := &http.Client{Timeout: 2 * cfg.ExternalCallTimeout}
	forecaster := forecastapi.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPIKey, httpClient)
	outcomes := actualsapi.NewClient(cfg.ActualsAPIURL, cfg.ActualsAPIKey, httpClient)
	routes := airports.NewResolver()
	clk := clock.System{}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.TelegramToken,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
		OnError: func(err error, c telebot.Context) {
			logCtx := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil {
				logCtx = logCtx.WithField("sender_id", c.Sender().ID)
			}
			logCtx.Error("Telegram handler error")
		},
	})
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	sink := telegram.NewStatusChangeNotifier(telegram.NewTelebotAdapter(bot))

	predictions := app.NewPredictionService(repos, forecaster, routes, clk, cfg.ExternalCallTimeout, appMetrics, logger.Component("predictions"))
	actualsJob := app.NewActualsJob(repos, outcomes, cfg.ExternalCallTimeout, logger.Component("actuals_job"))
	refreshJob := app.NewRefreshJob(repos, predictions, logger.Component("refresh_job"))
	notifyJob := app.NewNotificationJob(repos, predictions, sink, cfg.ExternalCallTimeout, logger.Component("notification_job"))
	expiryJob := app.NewExpiryJob(repos, logger.Component("expiry_job"))

	runner := app.NewJobRunner(clk, appMetrics, cfg.JobTimeout, logger.Component("job_runner"))

	return &application{
		cfg:         cfg,
		db:          db,
		registry:    registry,
		bot:         bot,
		predictions: predictions,
		runner:      runner,
		admin:       app.NewAdminService(runner, cfg.AdminTelegramID, actualsJob, refreshJob, notifyJob, expiryJob),
		schedule: []scheduler.Entry{
			{Spec: cfg.CronSpecActuals, Job: actualsJob},
			{Spec: cfg.CronSpecRefresh, Job: refreshJob},
			{Spec: cfg.CronSpecNotify, Job: notifyJob},
			{Spec: cfg.CronSpecExpiry, Job: expiryJob},
		},
	}, nil
}

func (a *application) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func openRepositories(ctx context.Context, cfg *config.AppConfig) (app.Repositories, *sql.DB, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memstore.New()
		return app.Repositories{
			Requests:      store.Requests(),
			Predictions:   store.Predictions(),
			Actuals:       store.Actuals(),
			Snapshots:     store.Snapshots(),
			Follows:       store.Follows(),
			Notifications: store.Notifications(),
		}, nil, nil
	}

	db, err := openMigratedDB(ctx, cfg)
	if err != nil {
		return app.Repositories{}, nil, err
	}
	return app.Repositories{
		Requests:      idb.NewPostgresRequestRepository(db),
		Predictions:   idb.NewPostgresPredictionRepository(db),
		Actuals:       idb.NewPostgresActualRepository(db),
		Snapshots:     idb.NewPostgresSnapshotRepository(db),
		Follows:       idb.NewPostgresFollowRepository(db),
		Notifications: idb.NewPostgresNotificationLogRepository(db),
	}, db, nil
}

func openMigratedDB(ctx context.Context, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := idb.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

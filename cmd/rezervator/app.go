package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/config"
	"github.com/erazemk/rezervator/internal/db"
	"github.com/erazemk/rezervator/internal/notify"
	"github.com/erazemk/rezervator/internal/session"
	"github.com/erazemk/rezervator/internal/warehouse"
	"github.com/erazemk/rezervator/internal/workflow"
)

// app is the wired service graph shared by all subcommands.
type app struct {
	cfg         config.Config
	logger      *slog.Logger
	db          *sql.DB
	blobs       *blob.Bolt
	warehouse   *warehouse.Service
	broadcaster *notify.Broadcaster
	sessions    *session.Manager
}

// openApp opens the stores and wires the services. The database must exist.
func openApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	if _, err := os.Stat(cfg.Database); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("database %s does not exist, run \"rezervator init\" first", cfg.Database)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}

	blobs, err := blob.OpenBolt(cfg.Blobs)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening image store: %w", err)
	}

	svc := warehouse.New(database, blobs, config.TodayIn(loc), logger)

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}
	broadcaster := notify.NewBroadcaster(database, svc, notifier, cfg.Notify.Workers, logger)

	deps := &workflow.Deps{
		DB:        database,
		Warehouse: svc,
		Blobs:     blobs,
		Images:    cfg.Processor(),
		Locks:     workflow.NewItemLocks(),
		Labels:    workflow.Labels{Event: cfg.Labels.Event, Requester: cfg.Labels.Requester},
		Logger:    logger,
	}
	sessions := session.NewManager(deps, broadcaster, session.Options{
		TTL:    cfg.Session.TTL,
		Window: cfg.Digest.Window,
		Admins: cfg.Admins,
	}, logger)

	logger.Info("database ready", "path", cfg.Database, "blobs", cfg.Blobs, "timezone", loc.String())

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          database,
		blobs:       blobs,
		warehouse:   svc,
		broadcaster: broadcaster,
		sessions:    sessions,
	}, nil
}

func (a *app) scheduler() (*notify.Scheduler, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	return notify.NewScheduler(notify.ScheduleConfig{
		DigestSpec:       a.cfg.Digest.Schedule,
		Window:           a.cfg.Digest.Window,
		NotifyRequesters: a.cfg.Digest.NotifyRequesters,
		Location:         loc,
	}, a.db, a.warehouse, a.broadcaster, a.logger)
}

func (a *app) Close() {
	if err := a.blobs.Close(); err != nil {
		a.logger.Error("closing image store", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
}

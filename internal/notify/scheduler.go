package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// Settings keys written after every digest run.
const (
	SettingLastDigest   = "last_digest"
	SettingLastDigestAt = "last_digest_at"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleConfig configures the periodic jobs.
type ScheduleConfig struct {
	// DigestSpec is the cron expression of the digest job, e.g. "0 9 * * *".
	DigestSpec string
	// Window is the ending-soon window in days.
	Window int
	// NotifyRequesters also sends every requester a personal reminder after
	// the digest.
	NotifyRequesters bool
	// Location is the time zone the cron expressions are evaluated in.
	Location *time.Location
}

// Scheduler runs the reminder digest and token cleanup on a cron schedule.
type Scheduler struct {
	cfg         ScheduleConfig
	db          *sql.DB
	svc         *warehouse.Service
	broadcaster *Broadcaster
	logger      *slog.Logger
	cron        *cron.Cron
	now         func() time.Time
}

// NewScheduler registers the jobs. The schedule is not started until Run.
func NewScheduler(cfg ScheduleConfig, db *sql.DB, svc *warehouse.Service, broadcaster *Broadcaster, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Window < 0 {
		return nil, warehouse.ErrNegativeWindow
	}

	s := &Scheduler{
		cfg:         cfg,
		db:          db,
		svc:         svc,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := s.cron.AddFunc(cfg.DigestSpec, func() {
		if _, err := s.RunDigest(context.Background()); err != nil {
			s.logger.Error("digest job failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling digest %q: %w", cfg.DigestSpec, err)
	}

	if _, err := s.cron.AddFunc("@daily", func() {
		if err := s.PurgeTokens(context.Background()); err != nil {
			s.logger.Error("token purge job failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduling token purge: %w", err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done. Running jobs are
// waited for before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", "digest", s.cfg.DigestSpec, "location", s.cfg.Location.String())
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// RunDigest builds the digest, records it in the settings and, when
// configured, notifies every requester.
func (s *Scheduler) RunDigest(ctx context.Context) (*Digest, error) {
	digest, err := BuildDigest(ctx, s.svc, s.cfg.Window)
	if err != nil {
		return nil, err
	}

	if err := store.SetSetting(ctx, s.db, SettingLastDigest, digest.Render()); err != nil {
		return nil, fmt.Errorf("saving digest: %w", err)
	}
	if err := store.SetSetting(ctx, s.db, SettingLastDigestAt, s.now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("saving digest time: %w", err)
	}
	s.logger.Info("digest built", "date", digest.Date, "ending", len(digest.Ending), "overdue", len(digest.Overdue))

	if s.cfg.NotifyRequesters && s.broadcaster != nil && !digest.Empty() {
		if _, err := s.broadcaster.NotifyAll(ctx); err != nil {
			return digest, fmt.Errorf("notifying requesters: %w", err)
		}
	}
	return digest, nil
}

// PurgeTokens removes revoked tokens that have expired anyway.
func (s *Scheduler) PurgeTokens(ctx context.Context) error {
	n, err := store.PurgeRevokedTokens(ctx, s.db, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged revoked tokens", "count", n)
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

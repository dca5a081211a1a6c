package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// DefaultWorkers is the number of concurrent deliveries.
const DefaultWorkers = 4

// Broadcaster sends every requester with active reservations a personal
// reminder.
type Broadcaster struct {
	db       *sql.DB
	svc      *warehouse.Service
	notifier Notifier
	workers  int
	logger   *slog.Logger
}

// NewBroadcaster creates a Broadcaster delivering through notifier with up to
// workers concurrent deliveries.
func NewBroadcaster(db *sql.DB, svc *warehouse.Service, notifier Notifier, workers int, logger *slog.Logger) *Broadcaster {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Broadcaster{db: db, svc: svc, notifier: notifier, workers: workers, logger: logger}
}

// Result summarizes a broadcast.
type Result struct {
	Requesters int `json:"requesters"`
	Notified   int `json:"notified"`
	Failed     int `json:"failed"`
}

type message struct {
	requester store.ActiveRequester
	text      string
}

// NotifyAll delivers the reminders. A failed delivery is logged and skipped;
// the error return is reserved for failures reading the store.
func (b *Broadcaster) NotifyAll(ctx context.Context) (Result, error) {
	requesters, err := store.ListActiveRequesters(ctx, b.db, b.svc.Today())
	if err != nil {
		return Result{}, fmt.Errorf("listing requesters: %w", err)
	}

	messages := make([]message, 0, len(requesters))
	for _, r := range requesters {
		holdings, err := b.svc.MyReservations(ctx, r.ID)
		if err != nil {
			return Result{}, fmt.Errorf("listing reservations of requester %d: %w", r.ID, err)
		}
		if len(holdings) == 0 {
			continue
		}
		messages = append(messages, message{requester: r, text: RenderPersonal(holdings)})
	}

	pool, err := ants.NewPool(b.workers)
	if err != nil {
		return Result{}, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		notified atomic.Int64
		failed   atomic.Int64
	)
	for _, m := range messages {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := b.notifier.Notify(ctx, m.requester.ID, m.text); err != nil {
				b.logger.Error("failed to notify requester", "requester", m.requester.ID, "label", m.requester.Label, "error", err)
				failed.Add(1)
				return
			}
			notified.Add(1)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			b.logger.Error("failed to schedule notification", "requester", m.requester.ID, "error", err)
			failed.Add(1)
		}
	}
	wg.Wait()

	res := Result{Requesters: len(messages), Notified: int(notified.Load()), Failed: int(failed.Load())}
	b.logger.Info("requesters notified", "requesters", res.Requesters, "notified", res.Notified, "failed", res.Failed)
	return res, nil
}

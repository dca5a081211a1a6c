// Package session keeps one conversation per requester and routes inbound
// intents to the active workflow or to the single-turn actions.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/notify"
	"github.com/erazemk/rezervator/internal/workflow"
)

// DefaultTTL is how long an idle session keeps its draft.
const DefaultTTL = 30 * time.Minute

// Options configures a Manager.
type Options struct {
	// TTL is the idle time after which a session is evicted.
	TTL time.Duration
	// Window is the ending-soon window of the reminder digest, in days.
	Window int
	// Admins may request the digest and notify everyone. When empty, every
	// requester may.
	Admins []int64
}

// Manager owns all sessions. Events of one requester are handled one at a
// time; different requesters are handled concurrently.
type Manager struct {
	deps        *workflow.Deps
	broadcaster *notify.Broadcaster
	opts        Options
	admins      map[int64]bool
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

// session exists while its requester has an active flow.
type session struct {
	mu       sync.Mutex
	flow     workflow.Flow
	lastSeen time.Time
	evicted  bool
}

// NewManager creates a Manager. broadcaster may be nil, in which case
// notify-all is unavailable.
func NewManager(deps *workflow.Deps, broadcaster *notify.Broadcaster, opts Options, logger *slog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	admins := make(map[int64]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = true
	}
	return &Manager{
		deps:        deps,
		broadcaster: broadcaster,
		opts:        opts,
		admins:      admins,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[int64]*session),
	}
}

// acquire returns the requester's session, locked.
func (m *Manager) acquire(id int64) *session {
	for {
		m.mu.Lock()
		s, ok := m.sessions[id]
		if !ok {
			s = &session{}
			m.sessions[id] = s
		}
		m.mu.Unlock()

		s.mu.Lock()
		if !s.evicted {
			s.lastSeen = m.now()
			return s
		}
		// Released or evicted between lookup and lock.
		s.mu.Unlock()
	}
}

// release unlocks s, first removing it when it holds no flow. s must be
// locked by the caller.
func (m *Manager) release(id int64, s *session) {
	if s.flow == nil {
		m.mu.Lock()
		if m.sessions[id] == s {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		s.evicted = true
	}
	s.mu.Unlock()
}

// Handle processes one inbound intent and returns the replies to send.
func (m *Manager) Handle(ctx context.Context, requester model.Requester, in intent.Intent) []workflow.Reply {
	s := m.acquire(requester.ID)
	defer m.release(requester.ID, s)

	log := m.logger.With("requester", requester.ID, "intent", in.Kind.String())
	if s.flow != nil {
		log = log.With("flow", s.flow.Name(), "state", s.flow.State())
	}
	log.Debug("handling intent")

	switch in.Kind {
	case intent.KindCancel:
		if s.flow != nil {
			s.flow.Handle(ctx, in)
			s.flow = nil
		}
		return workflow.Cancelled().Replies
	case intent.KindCommand:
		if s.flow != nil {
			log.Info("workflow abandoned")
			s.flow = nil
		}
		return m.command(ctx, s, requester, in.Command)
	case intent.KindReturn:
		return m.returnReservation(ctx, in.ID)
	case intent.KindDelete:
		return m.deleteItem(ctx, in.ID)
	}

	if s.flow == nil {
		if in.Kind == intent.KindNoop {
			return nil
		}
		return []workflow.Reply{menuReply("Choose an action from the menu:")}
	}

	out := s.flow.Handle(ctx, in)
	if out.Done {
		s.flow = nil
	}
	return out.Replies
}

func (m *Manager) start(ctx context.Context, s *session, flow workflow.Flow) []workflow.Reply {
	out := flow.Start(ctx)
	if !out.Done {
		s.flow = flow
	}
	return out.Replies
}

func (m *Manager) command(ctx context.Context, s *session, requester model.Requester, cmd intent.Command) []workflow.Reply {
	switch cmd {
	case intent.CmdStart, intent.CmdHelp:
		return []workflow.Reply{menuReply(helpText)}
	case intent.CmdAddItem:
		return m.start(ctx, s, workflow.NewItemFlow(m.deps))
	case intent.CmdReserve:
		return m.start(ctx, s, workflow.NewReservationFlow(m.deps, requester))
	case intent.CmdStockOn:
		return m.start(ctx, s, workflow.NewStockOnFlow(m.deps))
	case intent.CmdView:
		return m.start(ctx, s, workflow.NewViewFlow(m.deps))
	case intent.CmdStock:
		return m.stock(ctx)
	case intent.CmdReturn:
		return m.listReturnable(ctx)
	case intent.CmdDelete:
		return m.listDeletable(ctx)
	case intent.CmdMine:
		return m.mine(ctx, requester.ID)
	case intent.CmdReminders:
		if !m.isAdmin(requester.ID) {
			return []workflow.Reply{{Text: msgForbidden}}
		}
		return m.reminders(ctx)
	case intent.CmdNotifyAll:
		if !m.isAdmin(requester.ID) {
			return []workflow.Reply{{Text: msgForbidden}}
		}
		return m.notifyAll(ctx)
	}
	return []workflow.Reply{menuReply("❓ Unknown command. Choose an action from the menu:")}
}

func (m *Manager) isAdmin(id int64) bool {
	return len(m.admins) == 0 || m.admins[id]
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// State returns the active workflow and its state for a requester, or empty
// strings when the requester has none.
func (m *Manager) State(requesterID int64) (flow, state string) {
	m.mu.Lock()
	s, ok := m.sessions[requesterID]
	m.mu.Unlock()
	if !ok {
		return "", ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flow == nil {
		return "", ""
	}
	return s.flow.Name(), s.flow.State()
}

// Evict removes sessions idle for longer than the TTL and returns how many
// were removed. Sessions busy handling an event are skipped.
func (m *Manager) Evict(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if now.Sub(s.lastSeen) > m.opts.TTL {
			s.evicted = true
			delete(m.sessions, id)
			evicted++
		}
		s.mu.Unlock()
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Evict(m.now()); n > 0 {
				m.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

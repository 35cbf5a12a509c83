package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/golfshopapp/teesheet/internal/observability/metrics"
	"github.com/golfshopapp/teesheet/internal/session"
	"github.com/golfshopapp/teesheet/pkg/logging"
)

// Manager tracks live workflows by session id and rehydrates them from the
// snapshot store when a session outlives this process.
type Manager struct {
	api     SlotAPI
	store   session.Store
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	opts    []Option
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
}

type liveSession struct {
	workflow *Workflow
	lastSeen time.Time
}

// NewManager creates a session manager. store may be nil, in which case
// sessions live only in this process.
func NewManager(api SlotAPI, store session.Store, logger *logging.Logger, m *metrics.BookingMetrics, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		api:     api,
		store:   store,
		logger:  logger,
		metrics: m,
		opts:    opts,
		now:     time.Now,
		live:    make(map[string]*liveSession),
	}
}

// Create opens a new session with today's date preselected, which issues the
// initial slot fetch before returning.
func (m *Manager) Create(ctx context.Context) (string, *Workflow, error) {
	id := uuid.NewString()
	w := New(m.api, m.workflowOpts(id)...)

	m.mu.Lock()
	m.live[id] = &liveSession{workflow: w, lastSeen: m.now()}
	m.mu.Unlock()
	m.metrics.SessionOpened()

	today := m.now().Format("2006-01-02")
	if err := w.SelectDate(ctx, today); err != nil {
		return "", nil, err
	}

	m.logger.Info("session created", "session_id", id, "date", today)
	return id, w, nil
}

// Get returns the workflow for a session id, rehydrating from the snapshot
// store if the session is not live in this process. Returns
// ErrSessionNotFound when neither holds it.
func (m *Manager) Get(ctx context.Context, id string) (*Workflow, error) {
	m.mu.Lock()
	if ls, ok := m.live[id]; ok {
		ls.lastSeen = m.now()
		m.mu.Unlock()
		return ls.workflow, nil
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	state, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrSessionNotFound
	}

	w := NewFromState(m.api, state, m.workflowOpts(id)...)

	m.mu.Lock()
	// Another request may have rehydrated concurrently; keep the first.
	if ls, ok := m.live[id]; ok {
		ls.lastSeen = m.now()
		m.mu.Unlock()
		return ls.workflow, nil
	}
	m.live[id] = &liveSession{workflow: w, lastSeen: m.now()}
	m.mu.Unlock()
	m.metrics.SessionOpened()

	m.logger.Info("session rehydrated from store", "session_id", id)
	return w, nil
}

// End discards a session: the live workflow and its stored snapshot.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	_, wasLive := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()
	if wasLive {
		m.metrics.SessionClosed()
	}

	if !wasLive {
		if m.store == nil {
			return ErrSessionNotFound
		}
		state, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if state == nil {
			return ErrSessionNotFound
		}
	}
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	}
	m.logger.Info("session ended", "session_id", id)
	return nil
}

// Sweep evicts live sessions idle longer than maxIdle and returns how many it
// dropped. Their snapshots stay in the store, so an evicted session can still
// come back through Get.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, ls := range m.live {
		if ls.lastSeen.Before(cutoff) {
			delete(m.live, id)
			dropped++
			m.metrics.SessionClosed()
		}
	}
	if dropped > 0 {
		m.logger.Info("swept idle sessions", "count", dropped)
	}
	return dropped
}

func (m *Manager) workflowOpts(id string) []Option {
	opts := []Option{WithLogger(m.logger)}
	if m.store != nil {
		opts = append(opts, WithSnapshotStore(m.store, id))
	}
	return append(opts, m.opts...)
}

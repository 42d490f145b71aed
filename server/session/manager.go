package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/cache"
	"github.com/matchvision/pov-overlay/server/match"
	"github.com/matchvision/pov-overlay/server/models"
	"github.com/matchvision/pov-overlay/server/tracking"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotPlayable     = errors.New("game has no stream")
	ErrQueueFull       = errors.New("load queue full, try again later")
)

type ManagerConfig struct {
	DriftTolerance float64
	SessionTTL     time.Duration
	LoadWorkers    int
	LoadQueue      int
}

// Manager owns every live session and the background loading machinery:
// a bounded queue of load jobs drained by a small worker pool, the shared
// dataset cache in front of the store, and a janitor that reaps idle
// sessions.
type Manager struct {
	logger   *zap.Logger
	store    *tracking.Store
	datasets cache.DatasetCache
	catalog  *match.Catalog
	cfg      ManagerConfig

	mu       sync.RWMutex
	sessions map[string]*Session

	jobs     chan *Session
	wg       sync.WaitGroup
	shutdown chan struct{}
	janitor  *time.Ticker

	stateMu sync.RWMutex
	running bool
}

func NewManager(cfg ManagerConfig, store *tracking.Store, datasets cache.DatasetCache, catalog *match.Catalog, logger *zap.Logger) *Manager {
	if cfg.LoadWorkers < 1 {
		cfg.LoadWorkers = 1
	}
	if cfg.LoadQueue < 1 {
		cfg.LoadQueue = 16
	}

	m := &Manager{
		logger:   logger,
		store:    store,
		datasets: datasets,
		catalog:  catalog,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		jobs:     make(chan *Session, cfg.LoadQueue),
		shutdown: make(chan struct{}),
		running:  true,
	}

	for i := 0; i < cfg.LoadWorkers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	m.janitor = time.NewTicker(1 * time.Minute)
	go m.reapIdle()

	return m
}

// Create starts a session for a playable game and queues its dataset load.
// The caller polls the snapshot (or connects the websocket) while the load
// runs.
func (m *Manager) Create(gameID string) (*Session, error) {
	game, err := m.catalog.Get(gameID)
	if err != nil {
		return nil, err
	}
	if !game.Playable {
		return nil, fmt.Errorf("%w: %s", ErrNotPlayable, gameID)
	}

	if !m.isRunning() {
		return nil, ErrQueueFull
	}

	sess := newSession(uuid.NewString(), game, m.cfg.DriftTolerance)

	select {
	case m.jobs <- sess:
	default:
		return nil, ErrQueueFull
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", sess.ID),
		zap.String("game_id", gameID))

	return sess, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

type ManagerStats struct {
	ActiveSessions int          `json:"active_sessions"`
	QueuedLoads    int          `json:"queued_loads"`
	Datasets       *cache.Stats `json:"datasets"`
}

func (m *Manager) Stats(ctx context.Context) ManagerStats {
	m.mu.RLock()
	active := len(m.sessions)
	m.mu.RUnlock()

	stats := ManagerStats{
		ActiveSessions: active,
		QueuedLoads:    len(m.jobs),
	}
	if ds, err := m.datasets.Stats(ctx); err == nil {
		stats.Datasets = ds
	}
	return stats
}

// Preload warms the dataset cache for every playable game in the catalog.
// Failures are logged and skipped; sessions created later fall back to
// loading on demand.
func (m *Manager) Preload(ctx context.Context) {
	for _, game := range m.catalog.Games() {
		if !game.Playable {
			continue
		}
		if _, err := m.loadDataset(ctx, game.TrackingSource); err != nil {
			m.logger.Warn("Dataset preload failed",
				zap.String("game_id", game.ID),
				zap.Error(err))
		}
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()

	for {
		select {
		case sess := <-m.jobs:
			if sess != nil {
				m.load(sess)
			}
		case <-m.shutdown:
			return
		}
	}
}

func (m *Manager) load(sess *Session) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Session load panic", zap.Any("panic", r))
			sess.setFailed(fmt.Errorf("load failed: %v", r))
		}
	}()

	sess.setLoading(0.25)

	ds, err := m.loadDataset(context.Background(), sess.game.TrackingSource)
	if err != nil {
		// Non-fatal: the session stays usable on fallback positions.
		m.logger.Warn("Tracking load failed, session falls back to static positions",
			zap.String("session_id", sess.ID),
			zap.Error(err))
		sess.setFailed(err)
		return
	}

	sess.setLoading(0.75)
	sess.setReady(tracking.NewEngine(ds, tracking.NewRoleTable(sess.game.Roles)))

	m.logger.Info("Session ready",
		zap.String("session_id", sess.ID),
		zap.Int("frames", len(ds.Frames)))
}

func (m *Manager) loadDataset(ctx context.Context, source string) (*models.TrackingDataset, error) {
	if ds, err := m.datasets.Get(ctx, source); err == nil {
		return ds, nil
	}

	ds, err := m.store.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	if err := m.datasets.Set(ctx, source, ds); err != nil {
		m.logger.Warn("Failed to cache dataset", zap.Error(err))
	}
	return ds, nil
}

func (m *Manager) reapIdle() {
	for {
		select {
		case <-m.janitor.C:
			if m.cfg.SessionTTL <= 0 {
				continue
			}
			cutoff := time.Now().Add(-m.cfg.SessionTTL)
			m.mu.Lock()
			for id, sess := range m.sessions {
				if sess.idleSince().Before(cutoff) {
					delete(m.sessions, id)
					m.logger.Info("Idle session reaped", zap.String("session_id", id))
				}
			}
			m.mu.Unlock()
		case <-m.shutdown:
			return
		}
	}
}

func (m *Manager) isRunning() bool {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.running
}

// Shutdown stops accepting sessions, drains the workers and the janitor.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.stateMu.Lock()
	if !m.running {
		m.stateMu.Unlock()
		return nil
	}
	m.running = false
	m.stateMu.Unlock()

	m.janitor.Stop()
	close(m.shutdown)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

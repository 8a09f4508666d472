package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saintzema/ai-voice-call-agent/internal/audio"
	"github.com/saintzema/ai-voice-call-agent/internal/media"
	"github.com/saintzema/ai-voice-call-agent/internal/metrics"
	"github.com/saintzema/ai-voice-call-agent/internal/speech"
)

// Registry manages all active call sessions and reaps idle ones.
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger
	metrics  *metrics.Metrics

	config      Config
	frameBytes  int
	idleTimeout time.Duration
	stages      speech.Stages
	assets      *audio.Assets

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// RegistryConfig contains configuration for the session registry.
type RegistryConfig struct {
	Session     Config
	FrameBytes  int
	IdleTimeout time.Duration
}

// NewRegistry creates a session registry and starts its cleanup routine.
func NewRegistry(cfg RegistryConfig, stages speech.Stages, assets *audio.Assets,
	m *metrics.Metrics, logger *slog.Logger) *Registry {

	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		sessions:    make(map[string]*Session),
		logger:      logger,
		metrics:     m,
		config:      cfg.Session,
		frameBytes:  cfg.FrameBytes,
		idleTimeout: cfg.IdleTimeout,
		stages:      stages,
		assets:      assets,
		ctx:         ctx,
		cancel:      cancel,
		cleanup:     make(chan struct{}),
	}

	go r.startCleanupRoutine()

	return r
}

// CreateSession starts a new session streaming to the given sender. The
// returned session is already consuming events.
func (r *Registry) CreateSession(sender media.Sender) *Session {
	id := uuid.New().String()
	pacer := media.NewPacer(sender, r.frameBytes, r.config.SampleRate, r.logger)

	s := New(id, r.config, r.stages, pacer, r.assets, r.metrics, r.logger, r.remove)

	r.mu.Lock()
	r.sessions[id] = s
	count := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveCalls(count)
	r.logger.Info("Created call session",
		slog.String("session_id", id),
		slog.Int("active_sessions", count),
	)

	return s
}

// GetSession retrieves an active session by identifier.
func (r *Registry) GetSession(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[id]
	return s, exists
}

// ActiveCount returns the number of sessions currently active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns monitoring information for all active sessions.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// remove drops a finalized session from the registry. Runs on the
// session's own goroutine via the finalize hook.
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	count := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveCalls(count)
}

// Stop gracefully closes all sessions and the cleanup routine.
func (r *Registry) Stop() {
	r.logger.Info("Stopping session registry...")

	r.mu.RLock()
	active := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		active = append(active, s)
	}
	r.mu.RUnlock()

	for _, s := range active {
		s.Close()
	}
	for _, s := range active {
		<-s.Done()
	}

	r.cancel()
	<-r.cleanup

	r.logger.Info("Session registry stopped",
		slog.Int("closed_sessions", len(active)),
	)
}

// startCleanupRoutine reaps sessions whose transport went quiet without
// a stop event.
func (r *Registry) startCleanupRoutine() {
	defer close(r.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	r.logger.Info("Session cleanup routine started",
		slog.Duration("idle_timeout", r.idleTimeout),
	)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			r.cleanupIdleSessions()
		}
	}
}

// cleanupIdleSessions closes sessions past the inactivity timeout.
func (r *Registry) cleanupIdleSessions() {
	if r.idleTimeout <= 0 {
		return
	}

	now := time.Now()
	idle := make([]*Session, 0)

	r.mu.RLock()
	for _, s := range r.sessions {
		if now.Sub(s.LastActivity()) > r.idleTimeout {
			idle = append(idle, s)
		}
	}
	r.mu.RUnlock()

	if len(idle) == 0 {
		return
	}

	r.logger.Info("Closing idle sessions", slog.Int("idle_count", len(idle)))
	for _, s := range idle {
		s.Close()
	}
}

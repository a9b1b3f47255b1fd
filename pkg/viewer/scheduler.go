package viewer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFPS is the frame rate of Scheduler.Run
const DefaultFPS = 60

// Scheduler ticks every registered session once per frame
type Scheduler struct {
	mu       sync.Mutex
	sessions []*Session
	fps      int
	logger   *zap.Logger
}

// NewScheduler creates a scheduler running at fps frames per second
func NewScheduler(fps int, logger *zap.Logger) *Scheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{fps: fps, logger: logger.With(zap.String("component", "scheduler"))}
}

// Add registers a session
func (s *Scheduler) Add(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing == session {
			return
		}
	}
	s.sessions = append(s.sessions, session)
}

// Remove unregisters a session. It is safe to call for unknown sessions.
func (s *Scheduler) Remove(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.sessions {
		if existing == session {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered sessions
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Tick advances every registered session by one frame. Session errors are
// logged and never stop the loop.
func (s *Scheduler) Tick(dt time.Duration) {
	// Sessions are ticked outside the lock so a session may unregister itself
	s.mu.Lock()
	sessions := append([]*Session(nil), s.sessions...)
	s.mu.Unlock()

	for _, session := range sessions {
		if err := session.Tick(dt); err != nil {
			s.logger.Warn("frame failed", zap.Uint64("session", session.ID()), zap.Error(err))
		}
	}
}

// Run ticks at the configured frame rate until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Tick(now.Sub(last))
			last = now
		}
	}
}

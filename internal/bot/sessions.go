package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/lexera/internal/progression"
)

// Identity is the progress key for a Telegram user
func Identity(userID int64) string {
	return fmt.Sprintf("tg:%d", userID)
}

type session struct {
	engine     *progression.Engine
	chatID     int64
	lastActive time.Time
}

// Sessions keeps one running engine per Telegram user
type Sessions struct {
	mu      sync.Mutex
	byUser  map[int64]*session
	factory func(userID, chatID int64) *progression.Engine
	idle    time.Duration
	now     func() time.Time
}

// NewSessions creates an empty session table. factory builds an unstarted engine.
func NewSessions(factory func(userID, chatID int64) *progression.Engine, idle time.Duration) *Sessions {
	return &Sessions{
		byUser:  make(map[int64]*session),
		factory: factory,
		idle:    idle,
		now:     time.Now,
	}
}

// Get returns the running engine for userID and marks the session active
func (s *Sessions) Get(userID int64) (*progression.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byUser[userID]
	if !ok {
		return nil, false
	}
	sess.lastActive = s.now()
	return sess.engine, true
}

// Open returns the user's engine, creating and starting one if needed.
// created is true when a new session was started.
func (s *Sessions) Open(ctx context.Context, userID, chatID int64) (e *progression.Engine, created bool, err error) {
	s.mu.Lock()
	if sess, ok := s.byUser[userID]; ok {
		sess.lastActive = s.now()
		sess.chatID = chatID
		s.mu.Unlock()
		return sess.engine, false, nil
	}
	e = s.factory(userID, chatID)
	s.byUser[userID] = &session{engine: e, chatID: chatID, lastActive: s.now()}
	s.mu.Unlock()

	if err := e.Start(ctx, Identity(userID)); err != nil {
		s.remove(userID, e)
		e.Close()
		return nil, false, fmt.Errorf("start session: %w", err)
	}
	return e, true, nil
}

// Close ends the user's session, flushing its progress
func (s *Sessions) Close(userID int64) {
	s.mu.Lock()
	sess, ok := s.byUser[userID]
	delete(s.byUser, userID)
	s.mu.Unlock()
	if ok {
		sess.engine.Close()
	}
}

// SweepIdleSessions closes sessions inactive for longer than the idle timeout
func (s *Sessions) SweepIdleSessions(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	var stale []*progression.Engine
	s.mu.Lock()
	for id, sess := range s.byUser {
		if now.Sub(sess.lastActive) > s.idle {
			stale = append(stale, sess.engine)
			delete(s.byUser, id)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		e.Close()
	}
	return len(stale)
}

// CloseAll ends every session
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.byUser
	s.byUser = make(map[int64]*session)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range all {
		wg.Add(1)
		go func(e *progression.Engine) {
			defer wg.Done()
			e.Close()
		}(sess.engine)
	}
	wg.Wait()
}

// Len returns the number of open sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}

func (s *Sessions) remove(userID int64, e *progression.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byUser[userID]; ok && sess.engine == e {
		delete(s.byUser, userID)
	}
}

package session

import (
	"sync"
	"time"
)

// Store manages one booking session per Telegram chat.
type Store struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewStore creates a session store with the given idle timeout.
func NewStore(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Store{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
	}
}

// Get returns the session for a chat, or nil.
func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[chatID]
}

// GetOrCreate returns the existing session or creates a fresh one when none
// exists or the previous one has expired.
func (st *Store) GetOrCreate(chatID int64) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[chatID]
	if ok && !s.IsExpired(st.timeout) {
		return s
	}

	s = New()
	st.sessions[chatID] = s
	return s
}

// Delete removes a session.
func (st *Store) Delete(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for chatID, s := range st.sessions {
		if s.IsExpired(st.timeout) {
			delete(st.sessions, chatID)
			removed++
		}
	}
	return removed
}

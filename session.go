package weesql

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "ws_sid"

// Session holds per-user state: the connection opened through the connect action.
type Session struct {
	ID        string
	CreatedAt time.Time
	Conn      *Conn
}

// sessionStore keeps sessions in memory.
type sessionStore struct {
	mu   sync.RWMutex
	list map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{list: map[string]*Session{}}
}

// ensure returns the existing session from cookie or creates a new one.
func (s *sessionStore) ensure(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		s.mu.RLock()
		sess, ok := s.list[c.Value]
		s.mu.RUnlock()
		if ok {
			return sess
		}
	}
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now()}
	s.mu.Lock()
	s.list[sess.ID] = sess
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// setConn swaps the session connection and returns the previous one.
func (s *sessionStore) setConn(sess *Session, c *Conn) *Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := sess.Conn
	sess.Conn = c
	return prev
}

func (s *sessionStore) conn(sess *Session) *Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sess.Conn
}

// closeAll closes every session connection and forgets the sessions.
func (s *sessionStore) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.list {
		if sess.Conn != nil {
			_ = sess.Conn.Close()
		}
		delete(s.list, id)
	}
}

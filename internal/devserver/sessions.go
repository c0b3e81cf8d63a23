package devserver

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
)

// DeviceSession records where a login came from, parsed out of the
// User-Agent header.
type DeviceSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Platform  string    `json:"platform,omitempty"`
	OS        string    `json:"os,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Mobile    bool      `json:"mobile"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionLog keeps the login history per user so the sessions endpoint can
// show which devices hold tokens.
type SessionLog struct {
	mu       sync.RWMutex
	sessions []DeviceSession
	now      func() time.Time
}

func NewSessionLog() *SessionLog {
	return &SessionLog{now: time.Now}
}

// Record registers a successful login and returns the stored session.
func (l *SessionLog) Record(username, userAgent string) DeviceSession {
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	s := DeviceSession{
		ID:        uuid.NewString(),
		Username:  username,
		Platform:  ua.Platform(),
		OS:        ua.OS(),
		Browser:   browser,
		Mobile:    ua.Mobile(),
		CreatedAt: l.now(),
	}

	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s
}

// ForUser returns all recorded sessions for one user, newest last.
func (l *SessionLog) ForUser(username string) []DeviceSession {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]DeviceSession, 0)
	for _, s := range l.sessions {
		if s.Username == username {
			out = append(out, s)
		}
	}
	return out
}

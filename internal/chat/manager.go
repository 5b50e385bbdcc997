package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gryt-terminal/internal/logging"
)

// Canned assistant replies. FallbackGreeting is used when the backend answers
// without a response field; ErrorReply replaces the assistant turn whenever
// the outbound call fails.
const (
	FallbackGreeting = "I'm here to help! What would you like to know?"
	ErrorReply       = "Sorry, I encountered an error. Please try again."
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNoSession       = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyTitle      = errors.New("title is empty")
)

// Sender issues the outbound chat call and returns the assistant reply text.
type Sender interface {
	SendMessage(ctx context.Context, sessionID, message string) (string, error)
}

// Store persists sessions and their message logs.
type Store interface {
	SaveSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]Session, error)
	SaveMessage(ctx context.Context, message Message) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)
}

// Manager owns the session registry and the per-session message logs. The
// registry keeps sessions newest-first with exactly one marked current while
// non-empty. All mutations go through the Manager; UI code only reads.
//
// Messages are keyed by session, so switching sessions reloads the stored
// transcript and a reply that settles after a switch still lands in the log
// of the session that issued it.
type Manager struct {
	mu       sync.RWMutex
	store    Store
	sender   Sender
	sessions []Session
	current  string
}

func NewManager(store Store, sender Sender) *Manager {
	return &Manager{store: store, sender: sender}
}

// Load populates the registry from the store. The newest session becomes
// current.
func (m *Manager) Load(ctx context.Context) error {
	sessions, err := m.store.ListSessions(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = sessions
	m.current = ""
	if len(sessions) > 0 {
		m.current = sessions[0].ID
	}
	return nil
}

// Sessions returns a copy of the registry, newest first.
func (m *Manager) Sessions() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// CurrentID returns the current session id, or "" when the registry is empty.
func (m *Manager) CurrentID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CurrentSession returns the current session.
func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.ID == m.current {
			return s, true
		}
	}
	return Session{}, false
}

// CreateSession makes a new session with the default title, inserts it at the
// front of the registry and marks it current. The new session starts with an
// empty message log.
func (m *Manager) CreateSession(ctx context.Context) (Session, error) {
	session := NewSession()
	if err := m.store.SaveSession(ctx, session); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	m.sessions = append([]Session{session}, m.sessions...)
	m.current = session.ID
	m.mu.Unlock()

	logging.Info("created session", "session_id", session.ID)
	return session, nil
}

// DeleteSession removes the session and its messages. When the current
// session is deleted the registry's new head becomes current; deleting the
// last session leaves the registry empty with no current session.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	idx := -1
	for i, s := range m.sessions {
		if s.ID == sessionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	if m.current == sessionID {
		m.current = ""
		if len(m.sessions) > 0 {
			m.current = m.sessions[0].ID
		}
	}
	m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	logging.Info("deleted session", "session_id", sessionID)
	return nil
}

// SelectSession marks the session current and returns its stored transcript.
func (m *Manager) SelectSession(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.Lock()
	found := false
	for _, s := range m.sessions {
		if s.ID == sessionID {
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	m.current = sessionID
	m.mu.Unlock()

	return m.store.Messages(ctx, sessionID)
}

// RenameSession updates the session title.
func (m *Manager) RenameSession(ctx context.Context, sessionID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	m.mu.Lock()
	var updated Session
	idx := -1
	for i, s := range m.sessions {
		if s.ID == sessionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.sessions[idx].Title = title
	m.sessions[idx].UpdatedAt = time.Now()
	updated = m.sessions[idx]
	m.mu.Unlock()

	return m.store.SaveSession(ctx, updated)
}

// Messages returns the stored transcript for a session.
func (m *Manager) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	return m.store.Messages(ctx, sessionID)
}

// AppendUser validates and appends the user's message to the current session.
// Empty or whitespace-only input is rejected before anything is touched.
func (m *Manager) AppendUser(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	m.mu.RLock()
	sessionID := m.current
	m.mu.RUnlock()
	if sessionID == "" {
		return Message{}, ErrNoSession
	}

	msg := NewMessage(sessionID, RoleUser, text)
	if err := m.append(ctx, msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Complete issues the outbound call for a previously appended user message
// and appends exactly one assistant message to the issuing session's log,
// regardless of which session is current by the time the call settles. A
// failed call degrades into a canned apology rather than surfacing an error.
func (m *Manager) Complete(ctx context.Context, sessionID, text string) Message {
	reply, err := m.sender.SendMessage(ctx, sessionID, text)
	if err != nil {
		logging.Error("send failed", "session_id", sessionID, "error", err)
		reply = ErrorReply
	} else if reply == "" {
		reply = FallbackGreeting
	}

	msg := NewMessage(sessionID, RoleAssistant, reply)
	if err := m.append(ctx, msg); err != nil {
		logging.Error("failed to persist assistant message", "session_id", sessionID, "error", err)
	}
	return msg
}

// SendMessage runs the full exchange synchronously: one user message appended
// before the call starts, one assistant message appended once it settles.
func (m *Manager) SendMessage(ctx context.Context, text string) (Message, Message, error) {
	user, err := m.AppendUser(ctx, text)
	if err != nil {
		return Message{}, Message{}, err
	}
	assistant := m.Complete(ctx, user.SessionID, user.Content)
	return user, assistant, nil
}

func (m *Manager) append(ctx context.Context, msg Message) error {
	if err := m.store.SaveMessage(ctx, msg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions {
		if s.ID != msg.SessionID {
			continue
		}
		m.sessions[i].LastMessage = msg.Content
		m.sessions[i].UpdatedAt = msg.Timestamp
		if err := m.store.SaveSession(ctx, m.sessions[i]); err != nil {
			return err
		}
		break
	}
	return nil
}

// Package session holds the state of one composer run: the login gate, the
// draft being composed, the pending recording and the sent messages.
package session

import (
	"sync"
	"time"

	"voicemail/recorder"
)

// Message is immutable once appended. ID is the creation time in
// milliseconds, bumped when needed so it stays unique within the session.
type Message struct {
	ID        int64
	Text      string
	Audio     *recorder.Clip
	CreatedAt time.Time
}

func (m Message) HasAudio() bool { return m.Audio != nil }

// MessageList is append-only and keeps insertion order.
type MessageList struct {
	items []Message
}

func (l *MessageList) Append(m Message) { l.items = append(l.items, m) }

func (l *MessageList) Len() int { return len(l.items) }

// All returns a copy so callers can never reorder or edit the list.
func (l *MessageList) All() []Message {
	out := make([]Message, len(l.items))
	copy(out, l.items)
	return out
}

func (l *MessageList) Get(id int64) (Message, bool) {
	for _, m := range l.items {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Snapshot is a consistent copy of the session for rendering.
type Snapshot struct {
	LoggedIn bool
	Email    string
	Draft    string
	Capture  *recorder.Clip
	Messages []Message
}

type Session struct {
	mu       sync.Mutex
	loggedIn bool
	email    string
	draft    string
	capture  *recorder.Clip
	messages MessageList
	lastID   int64

	now func() time.Time
}

func New() *Session {
	return &Session{now: time.Now}
}

// Login opens the gate when both fields are non-empty. There is no
// credential store. Once open the gate never closes, and later calls
// report true whatever they carry.
func (s *Session) Login(email, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if email == "" || password == "" {
		return s.loggedIn
	}
	if !s.loggedIn {
		s.loggedIn = true
		s.email = email
	}
	return true
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetCapture replaces the pending recording; nil clears it.
func (s *Session) SetCapture(clip *recorder.Clip) {
	s.mu.Lock()
	s.capture = clip
	s.mu.Unlock()
}

func (s *Session) Capture() *recorder.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture
}

// Send appends the draft and pending recording as one message and clears
// both. With an empty draft and no recording it does nothing.
func (s *Session) Send() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == "" && s.capture == nil {
		return Message{}, false
	}

	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	m := Message{ID: id, Text: s.draft, Audio: s.capture, CreatedAt: now}
	s.messages.Append(m)
	s.draft = ""
	s.capture = nil
	return m, true
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.All()
}

func (s *Session) Message(id int64) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Get(id)
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Len()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		LoggedIn: s.loggedIn,
		Email:    s.email,
		Draft:    s.draft,
		Capture:  s.capture,
		Messages: s.messages.All(),
	}
}

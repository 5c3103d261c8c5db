// Package chat holds per-session conversation state for the assistant
// surface. Sessions are in-memory and bounded; messages are append-only.
package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/model"
)

const greeting = "Hi! I'm the WinBeat assistant. I can help you navigate, " +
	"search registrations and clients, analyze your data, and run multi-step " +
	"workflows. What would you like to do?"

type session struct {
	owner      string
	messages   []model.ChatMessage
	lastActive time.Time
}

// Store keeps chat sessions keyed by session id. Each session is owned by
// the user that opened it; other users cannot read or append to it. When
// the session cap is reached the least recently active session is evicted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	cfg      config.ChatConfig
	now      func() time.Time
}

// NewStore creates an empty session store.
func NewStore(cfg config.ChatConfig) *Store {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.MaxMessagesPerUser <= 0 {
		cfg.MaxMessagesPerUser = 200
	}
	return &Store{
		sessions: make(map[string]*session),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Open returns the id of an existing session after an ownership check, or
// creates a new session seeded with the assistant greeting when sessionID
// is empty or unknown.
func (s *Store) Open(userCode, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if sess, ok := s.sessions[sessionID]; ok {
			if sess.owner != userCode {
				return "", model.NewForbiddenError("This conversation belongs to another user.")
			}
			sess.lastActive = s.now()
			return sessionID, nil
		}
	}

	s.evictLocked()
	id := uuid.NewString()
	now := s.now()
	s.sessions[id] = &session{
		owner:      userCode,
		lastActive: now,
		messages: []model.ChatMessage{{
			ID:        uuid.NewString(),
			Type:      model.MessageTypeAssistant,
			Content:   greeting,
			Timestamp: now,
			Source:    model.SourceSystem,
		}},
	}
	return id, nil
}

// AppendUser records the user's query as a chat turn.
func (s *Store) AppendUser(userCode, sessionID, content string) (model.ChatMessage, error) {
	return s.append(userCode, sessionID, model.ChatMessage{
		Type:    model.MessageTypeUser,
		Content: content,
	})
}

// AppendAssistant records the interpreter's response as a chat turn.
func (s *Store) AppendAssistant(userCode, sessionID string, resp model.AssistantResponse) (model.ChatMessage, error) {
	return s.append(userCode, sessionID, model.ChatMessage{
		Type:    model.MessageTypeAssistant,
		Content: resp.Message,
		Data:    resp.Data,
		Source:  resp.Source,
	})
}

func (s *Store) append(userCode, sessionID string, msg model.ChatMessage) (model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.ChatMessage{}, model.NewNotFoundError("Unknown conversation.")
	}
	if sess.owner != userCode {
		return model.ChatMessage{}, model.NewForbiddenError("This conversation belongs to another user.")
	}

	msg.ID = uuid.NewString()
	msg.Timestamp = s.now()
	sess.lastActive = msg.Timestamp
	sess.messages = append(sess.messages, msg)
	if len(sess.messages) > s.cfg.MaxMessagesPerUser {
		sess.messages = sess.messages[len(sess.messages)-s.cfg.MaxMessagesPerUser:]
	}
	return msg, nil
}

// Messages returns the session's messages in insertion order.
func (s *Store) Messages(userCode, sessionID string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, model.NewNotFoundError("Unknown conversation.")
	}
	if sess.owner != userCode {
		return nil, model.NewForbiddenError("This conversation belongs to another user.")
	}
	out := make([]model.ChatMessage, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evictLocked makes room for one more session by dropping the least
// recently active ones.
func (s *Store) evictLocked() {
	if len(s.sessions) < s.cfg.MaxSessions {
		return
	}
	type candidate struct {
		id   string
		last time.Time
	}
	candidates := make([]candidate, 0, len(s.sessions))
	for id, sess := range s.sessions {
		candidates = append(candidates, candidate{id: id, last: sess.lastActive})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].last.Before(candidates[j].last)
	})
	for _, c := range candidates[:len(s.sessions)-s.cfg.MaxSessions+1] {
		delete(s.sessions, c.id)
	}
}

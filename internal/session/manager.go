package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/polychat-ai/polychat/internal/event"
	"github.com/polychat-ai/polychat/internal/logging"
	"github.com/polychat-ai/polychat/internal/storage"
	"github.com/polychat-ai/polychat/pkg/types"
)

var (
	// ErrNoAgents is returned when a multi-agent session is created with an
	// empty agent list.
	ErrNoAgents = errors.New("at least one agent is required")

	// ErrSessionNotFound is returned by operations that require the session
	// to exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Default titles, matching the desktop app's defaults.
const (
	defaultTitle           = "新会话"
	defaultMultiAgentTitle = "多智能体对话"
)

// Manager is the single-writer API over session state. Mutations are
// serialized per session ID and persisted after every change. Readers get
// deep copies; the managed Session objects never escape.
type Manager struct {
	store *storage.Store
	bus   *event.Bus
	log   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*types.Session
	locks    map[string]*sync.Mutex
}

// NewManager creates a manager hydrated from previously stored sessions.
// bus may be nil when lifecycle events are not needed.
func NewManager(ctx context.Context, store *storage.Store, bus *event.Bus) (*Manager, error) {
	m := &Manager{
		store:    store,
		bus:      bus,
		log:      logging.For("session"),
		sessions: make(map[string]*types.Session),
		locks:    make(map[string]*sync.Mutex),
	}

	stored, err := store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	for _, s := range stored {
		m.sessions[s.ID] = s
	}

	return m, nil
}

// Create creates a single-agent session, persists it, and marks it active.
func (m *Manager) Create(ctx context.Context, agentID, title string) (*types.Session, error) {
	if title == "" {
		title = defaultTitle
	}

	now := time.Now().UnixMilli()
	session := &types.Session{
		ID:             ulid.Make().String(),
		Title:          title,
		AgentIDs:       []string{agentID},
		DefaultAgentID: agentID,
		Messages:       []types.Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.register(ctx, session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// CreateMultiAgent creates a session with several agents. The first listed
// agent becomes the default; input order is preserved, duplicates after the
// first occurrence are dropped.
func (m *Manager) CreateMultiAgent(ctx context.Context, agentIDs []string, title string) (*types.Session, error) {
	if len(agentIDs) == 0 {
		return nil, ErrNoAgents
	}
	if title == "" {
		title = defaultMultiAgentTitle
	}

	seen := make(map[string]bool, len(agentIDs))
	unique := make([]string, 0, len(agentIDs))
	for _, id := range agentIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	now := time.Now().UnixMilli()
	session := &types.Session{
		ID:             ulid.Make().String(),
		Title:          title,
		AgentIDs:       unique,
		DefaultAgentID: unique[0],
		Messages:       []types.Message{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.register(ctx, session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// register stores a freshly created session and activates it.
func (m *Manager) register(ctx context.Context, session *types.Session) error {
	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.store.SetActive(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to activate session: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.log.Debug().Str("session", session.ID).Str("title", session.Title).Msg("session created")
	m.publish(event.SessionCreated, event.SessionData{Info: session.Clone()})
	return nil
}

// Get returns a copy of the session, or nil when the ID is unknown.
// A missing session is never an error here. The per-session lock is held
// while cloning so readers never observe a mutation in progress.
func (m *Manager) Get(id string) *types.Session {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return session.Clone()
}

// List returns copies of all sessions ordered by creation time.
func (m *Manager) List() []*types.Session {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sessions := make([]*types.Session, 0, len(ids))
	for _, id := range ids {
		if s := m.Get(id); s != nil {
			sessions = append(sessions, s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt < sessions[j].CreatedAt
	})
	return sessions
}

// AddAgent appends an agent to the session's membership. Adding an agent
// that is already a member, or to an unknown session, is a no-op.
func (m *Manager) AddAgent(ctx context.Context, id, agentID string) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		if s.HasAgent(agentID) {
			return false
		}
		s.AgentIDs = append(s.AgentIDs, agentID)
		return true
	})
}

// RemoveAgent removes an agent from the session's membership. Removing an
// absent agent or the default agent is a no-op; the agent's context entry is
// kept and message history is never purged.
func (m *Manager) RemoveAgent(ctx context.Context, id, agentID string) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		if agentID == s.DefaultAgentID || !s.HasAgent(agentID) {
			return false
		}
		filtered := s.AgentIDs[:0]
		for _, existing := range s.AgentIDs {
			if existing != agentID {
				filtered = append(filtered, existing)
			}
		}
		s.AgentIDs = filtered
		return true
	})
}

// SetDefaultAgent promotes an agent to be the session's default, enrolling
// it first if it is not yet a member.
func (m *Manager) SetDefaultAgent(ctx context.Context, id, agentID string) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		if !s.HasAgent(agentID) {
			s.AgentIDs = append(s.AgentIDs, agentID)
		}
		s.DefaultAgentID = agentID
		return true
	})
}

// SetAgentSystemPrompt sets the per-session system prompt for an agent,
// creating its context entry on first write. Membership is not required:
// context can be staged before enrollment.
func (m *Manager) SetAgentSystemPrompt(ctx context.Context, id, agentID, prompt string) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		s.EnsureAgentContext(agentID).SystemPrompt = prompt
		return true
	})
}

// SetAgentModelSettings sets the per-session model settings for an agent,
// creating its context entry on first write.
func (m *Manager) SetAgentModelSettings(ctx context.Context, id, agentID string, settings *types.ModelSettings) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		s.EnsureAgentContext(agentID).ModelSettings = settings
		return true
	})
}

// AddMessage appends a message to the session, assigning a fresh ID and
// timestamp. Unlike the other mutations, a missing session is an error.
func (m *Manager) AddMessage(ctx context.Context, id string, draft types.MessageDraft) (*types.Message, error) {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}

	message := types.Message{
		ID:        ulid.Make().String(),
		Role:      draft.Role,
		Content:   draft.Content,
		AgentID:   draft.AgentID,
		AgentName: draft.AgentName,
		CreatedAt: time.Now().UnixMilli(),
	}

	session.Messages = append(session.Messages, message)
	session.UpdatedAt = time.Now().UnixMilli()

	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.publish(event.MessageCreated, event.MessageData{SessionID: id, Info: &message})
	return &message, nil
}

// GetMessage returns a copy of a message, or nil when the session or the
// message is unknown.
func (m *Manager) GetMessage(id, messageID string) *types.Message {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			msg := session.Messages[i]
			return &msg
		}
	}
	return nil
}

// UpdateMessage patches a message in place. An unknown session is a silent
// no-op, deliberately asymmetric with AddMessage. The session is stamped and
// persisted even when no message matches messageID.
func (m *Manager) UpdateMessage(ctx context.Context, id, messageID string, patch types.MessagePatch) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	var updated *types.Message
	for i := range session.Messages {
		if session.Messages[i].ID != messageID {
			continue
		}
		if patch.Content != nil {
			session.Messages[i].Content = *patch.Content
		}
		if patch.AgentID != nil {
			session.Messages[i].AgentID = *patch.AgentID
		}
		if patch.AgentName != nil {
			session.Messages[i].AgentName = *patch.AgentName
		}
		msg := session.Messages[i]
		updated = &msg
		break
	}

	session.UpdatedAt = time.Now().UnixMilli()
	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if updated != nil {
		m.publish(event.MessageUpdated, event.MessageData{SessionID: id, Info: updated})
	}
	return nil
}

// Rename updates the session title. Returns the updated session, or nil
// when the ID is unknown.
func (m *Manager) Rename(ctx context.Context, id, title string) (*types.Session, error) {
	err := m.mutate(ctx, id, func(s *types.Session) bool {
		s.Title = title
		return true
	})
	if err != nil {
		return nil, err
	}
	return m.Get(id), nil
}

// ClearMessages removes all messages from the session.
func (m *Manager) ClearMessages(ctx context.Context, id string) error {
	return m.mutate(ctx, id, func(s *types.Session) bool {
		if len(s.Messages) == 0 {
			return false
		}
		s.Messages = []types.Message{}
		return true
	})
}

// Delete removes the session from the manager and the store. Deleting an
// unknown session is a no-op.
func (m *Manager) Delete(ctx context.Context, id string) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := m.store.DeleteSession(ctx, id); err != nil {
		return err
	}

	if active, _ := m.store.GetActive(ctx); active == id {
		if err := m.store.ClearActive(ctx); err != nil {
			return err
		}
	}

	m.log.Debug().Str("session", id).Msg("session deleted")
	m.publish(event.SessionDeleted, event.SessionData{Info: session.Clone()})
	return nil
}

// ActiveSession returns a copy of the currently active session, or nil when
// none is set.
func (m *Manager) ActiveSession(ctx context.Context) (*types.Session, error) {
	id, err := m.store.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return m.Get(id), nil
}

// SetActiveSession marks a session as active.
func (m *Manager) SetActiveSession(ctx context.Context, id string) error {
	return m.store.SetActive(ctx, id)
}

// Export serializes all sessions plus the active pointer.
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	return m.store.ExportAll(ctx)
}

// Import loads sessions from an Export payload and rehydrates the manager.
func (m *Manager) Import(ctx context.Context, data []byte) error {
	if err := m.store.ImportAll(ctx, data); err != nil {
		return err
	}

	stored, err := m.store.ListSessions(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stored {
		m.sessions[s.ID] = s
	}
	return nil
}

// mutate runs fn against the session under its per-session lock. When fn
// reports a change, UpdatedAt is stamped, the session is persisted, and a
// session.updated event is published. An unknown session is a silent no-op.
func (m *Manager) mutate(ctx context.Context, id string, fn func(*types.Session) bool) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	if !fn(session) {
		return nil
	}

	session.UpdatedAt = time.Now().UnixMilli()
	if err := m.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.publish(event.SessionUpdated, event.SessionData{Info: session.Clone()})
	return nil
}

// sessionLock returns the mutex serializing mutations for one session ID.
func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

func (m *Manager) publish(eventType event.EventType, data any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(event.Event{Type: eventType, Data: data})
}

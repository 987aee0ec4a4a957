// Package storage provides file-based JSON persistence for sessions and the
// active-session pointer.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/polychat-ai/polychat/pkg/types"
)

var ErrNotFound = errors.New("not found")

// Store persists one JSON document per session under <base>/session/ plus an
// active.json pointer document. Writes are atomic (temp file + rename) and
// guarded by per-file locks.
type Store struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// New creates a Store rooted at basePath.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.basePath, "session", id+".json")
}

func (s *Store) activePath() string {
	return filepath.Join(s.basePath, "active.json")
}

// SaveSession writes a session document.
func (s *Store) SaveSession(ctx context.Context, session *types.Session) error {
	return s.writeFile(s.sessionPath(session.ID), session)
}

// LoadSession reads a session by ID. Returns ErrNotFound if no document
// exists for the ID.
func (s *Store) LoadSession(ctx context.Context, id string) (*types.Session, error) {
	var session types.Session
	if err := s.readFile(s.sessionPath(id), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session document. Deleting a missing session is
// not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	filePath := s.sessionPath(id)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions returns all stored sessions ordered by creation time.
func (s *Store) ListSessions(ctx context.Context) ([]*types.Session, error) {
	dirPath := filepath.Join(s.basePath, "session")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*types.Session{}, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var sessions []*types.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue // skip unreadable files
		}

		var session types.Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue // skip corrupt documents
		}
		sessions = append(sessions, &session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt < sessions[j].CreatedAt
	})

	return sessions, nil
}

// SetActive records id as the currently active session.
func (s *Store) SetActive(ctx context.Context, id string) error {
	return s.writeFile(s.activePath(), activePointer{ID: id})
}

// GetActive returns the active session ID, or "" when none is set.
func (s *Store) GetActive(ctx context.Context) (string, error) {
	var ptr activePointer
	if err := s.readFile(s.activePath(), &ptr); err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return ptr.ID, nil
}

// ClearActive removes the active-session pointer.
func (s *Store) ClearActive(ctx context.Context) error {
	if err := os.Remove(s.activePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear active pointer: %w", err)
	}
	return nil
}

type activePointer struct {
	ID string `json:"id"`
}

// exportDocument is the serialized shape for Export/Import.
type exportDocument struct {
	Sessions        []*types.Session `json:"sessions"`
	ActiveSessionID string           `json:"activeSessionId,omitempty"`
}

// ExportAll serializes every session plus the active pointer.
func (s *Store) ExportAll(ctx context.Context) ([]byte, error) {
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(exportDocument{
		Sessions:        sessions,
		ActiveSessionID: active,
	}, "", "  ")
}

// ImportAll loads sessions from a previous ExportAll payload. Existing
// sessions with the same ID are overwritten.
func (s *Store) ImportAll(ctx context.Context, data []byte) error {
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse import data: %w", err)
	}

	for _, session := range doc.Sessions {
		if session.ID == "" {
			return fmt.Errorf("import contains session without id")
		}
		if err := s.SaveSession(ctx, session); err != nil {
			return err
		}
	}

	if doc.ActiveSessionID != "" {
		return s.SetActive(ctx, doc.ActiveSessionID)
	}
	return nil
}

// readFile reads and unmarshals a JSON document.
func (s *Store) readFile(filePath string, v any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// writeFile marshals v and writes it atomically under a file lock.
func (s *Store) writeFile(filePath string, v any) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// getLock returns the lock for a file path.
func (s *Store) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}
	return lock
}

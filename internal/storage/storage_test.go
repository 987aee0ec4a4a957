package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/polychat-ai/polychat/pkg/types"
)

func testSession(id string) *types.Session {
	temp := 0.7
	return &types.Session{
		ID:             id,
		Title:          "Test Session",
		AgentIDs:       []string{"agent1", "agent2"},
		DefaultAgentID: "agent1",
		AgentContexts: map[string]*types.AgentContext{
			"agent2": {
				SystemPrompt: "You are terse.",
				ModelSettings: &types.ModelSettings{
					Model:       "gpt-4o-mini",
					Temperature: &temp,
					MaxTokens:   2000,
				},
			},
		},
		Messages: []types.Message{
			{ID: "m1", Role: types.RoleUser, Content: "hello", CreatedAt: 1000},
			{ID: "m2", Role: types.RoleAssistant, Content: "hi", AgentID: "agent2", AgentName: "Bee", CreatedAt: 1001},
		},
		CreatedAt: 1000,
		UpdatedAt: 1001,
	}
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	session := testSession("s1")
	if err := s.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	loaded, err := s.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}

	if !reflect.DeepEqual(loaded, session) {
		t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", loaded, session)
	}
}

func TestStore_LoadNotFound(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.LoadSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if _, err := s.LoadSession(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}

	// Deleting a missing session is not an error.
	if err := s.DeleteSession(ctx, "s1"); err != nil {
		t.Errorf("delete of missing session should not error: %v", err)
	}
}

func TestStore_ListSessionsOrdered(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	for i, id := range []string{"c", "a", "b"} {
		session := testSession(id)
		session.CreatedAt = int64(100 - i)
		session.Messages = nil
		if err := s.SaveSession(ctx, session); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	// Ordered by creation time: b(98) < a(99) < c(100).
	want := []string{"b", "a", "c"}
	for i, session := range sessions {
		if session.ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, session.ID, want[i])
		}
	}
}

func TestStore_ActivePointer(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	active, err := s.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active != "" {
		t.Errorf("expected no active session, got %q", active)
	}

	if err := s.SetActive(ctx, "s1"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err = s.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if active != "s1" {
		t.Errorf("expected active s1, got %q", active)
	}

	if err := s.ClearActive(ctx); err != nil {
		t.Fatalf("ClearActive failed: %v", err)
	}
	active, _ = s.GetActive(ctx)
	if active != "" {
		t.Errorf("expected cleared active pointer, got %q", active)
	}
}

func TestStore_ExportImport(t *testing.T) {
	src := New(t.TempDir())
	ctx := context.Background()

	session := testSession("s1")
	if err := src.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := src.SetActive(ctx, "s1"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	data, err := src.ExportAll(ctx)
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	dst := New(t.TempDir())
	if err := dst.ImportAll(ctx, data); err != nil {
		t.Fatalf("ImportAll failed: %v", err)
	}

	loaded, err := dst.LoadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadSession after import failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, session) {
		t.Errorf("import round-trip mismatch:\ngot  %+v\nwant %+v", loaded, session)
	}

	active, _ := dst.GetActive(ctx)
	if active != "s1" {
		t.Errorf("expected active s1 after import, got %q", active)
	}
}

func TestStore_ImportRejectsInvalid(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	if err := s.ImportAll(ctx, []byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := s.ImportAll(ctx, []byte(`{"sessions":[{"title":"no id"}]}`)); err == nil {
		t.Error("expected error for session without id")
	}
}

func TestStore_AtomicWriteLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(tmpDir)
	ctx := context.Background()

	if err := s.SaveSession(ctx, testSession("s1")); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(tmpDir, "session"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

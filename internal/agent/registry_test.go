package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/polychat-ai/polychat/pkg/types"
)

func TestNewRegistryHasBuiltIns(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"assistant", AnalystName} {
		a, err := r.Get(name)
		if err != nil {
			t.Fatalf("expected built-in agent %q: %v", name, err)
		}
		if !a.BuiltIn {
			t.Errorf("agent %q should be marked built-in", name)
		}
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestRegistry_RegisterAndUnregister(t *testing.T) {
	r := NewRegistry()

	r.Register(&Agent{Name: "critic", Description: "Reviews answers"})

	a, err := r.Get("critic")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Description != "Reviews answers" {
		t.Errorf("unexpected description: %q", a.Description)
	}

	r.Unregister("critic")
	if _, err := r.Get("critic"); err == nil {
		t.Error("expected error after unregister")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&Agent{Name: "zeta"})
	r.Register(&Agent{Name: "alpha"})

	agents := r.List()
	for i := 1; i < len(agents); i++ {
		if agents[i-1].Name > agents[i].Name {
			t.Fatalf("list not sorted: %s before %s", agents[i-1].Name, agents[i].Name)
		}
	}
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()

	def := []byte("name: researcher\ndescription: Digs into sources\nprompt: You research thoroughly.\nsettings:\n  model: gpt-4o-mini\n  maxTokens: 2048\n")
	if err := os.WriteFile(filepath.Join(dir, "researcher.yaml"), def, 0644); err != nil {
		t.Fatal(err)
	}
	// Non-YAML files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	a, err := r.Get("researcher")
	if err != nil {
		t.Fatalf("expected loaded agent: %v", err)
	}
	if a.Settings == nil || a.Settings.Model != "gpt-4o-mini" || a.Settings.MaxTokens != 2048 {
		t.Errorf("settings not loaded: %+v", a.Settings)
	}
}

func TestRegistry_LoadDirMissingIsNotError(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing directory should not error: %v", err)
	}
}

func TestRegistry_LoadDirReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(":\nnot yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err == nil {
		t.Error("expected error for unparseable agent file")
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	temp := 0.3
	r := NewRegistry()
	r.Register(&Agent{
		Name:     "critic",
		Prompt:   "Be critical.",
		Settings: &types.ModelSettings{Model: "gpt-4o", Temperature: &temp},
	})

	got, err := r.Get("critic")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.Prompt = "Tampered"
	got.Settings.Model = "other"
	*got.Settings.Temperature = 0.9

	fresh, err := r.Get("critic")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fresh.Prompt != "Be critical." || fresh.Settings.Model != "gpt-4o" || *fresh.Settings.Temperature != 0.3 {
		t.Errorf("registry state mutated through a returned agent: %+v", fresh)
	}
}

func TestAgent_Clone(t *testing.T) {
	temp := 0.3
	a := &Agent{
		Name:     "critic",
		Prompt:   "Be critical.",
		Settings: &types.ModelSettings{Model: "gpt-4o", Temperature: &temp},
	}

	clone := a.Clone()
	*clone.Settings.Temperature = 0.9
	clone.Settings.Model = "other"

	if *a.Settings.Temperature != 0.3 || a.Settings.Model != "gpt-4o" {
		t.Error("Clone should deep-copy model settings")
	}
}

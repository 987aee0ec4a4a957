package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry manages agent configurations.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a registry pre-populated with the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{agents: make(map[string]*Agent)}
	for name, a := range BuiltInAgents() {
		r.agents[name] = a
	}
	return r
}

// Get retrieves a copy of an agent by name. Mutating the returned agent
// does not affect the registry.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}
	return a.Clone(), nil
}

// Register adds or replaces an agent.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = a
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns copies of all registered agents sorted by name.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a.Clone())
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents
}

// LoadDir registers agents defined in *.yaml / *.yml files under dir.
// A missing directory is not an error. Files that fail to parse are skipped
// and reported in the returned error after all loadable files are applied.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read agents directory: %w", err)
	}

	var failed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			failed = append(failed, name)
			continue
		}

		var a Agent
		if err := yaml.Unmarshal(data, &a); err != nil || a.Name == "" {
			failed = append(failed, name)
			continue
		}

		r.Register(&a)
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to load agent definitions: %s", strings.Join(failed, ", "))
	}
	return nil
}

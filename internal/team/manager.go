package team

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/jholhewres/crewcode/internal/agentrt"
)

// configKeySentinel marks an agent's apiKey field as "use the
// process-wide config key for this provider" rather than an explicit
// secret, per spec.md §4.5/§6.
const configKeySentinel = "__config__"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// safeName folds name into the filesystem-safe form spec.md §6
// requires: every character other than a letter, digit, '_' or '-'
// becomes an underscore.
func safeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// fileAgent is the on-disk shape of one agentrt.Config, matching
// spec.md §6's team file schema field-for-field.
type fileAgent struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	SystemPrompt  string `json:"systemPrompt"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKey        string `json:"apiKey"`
	OllamaBaseURL string `json:"ollamaBaseUrl,omitempty"`
}

// fileTeam is the on-disk shape of one Team.
type fileTeam struct {
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Agents    []fileAgent `json:"agents"`
}

// Summary is the row shape Manager.List returns (spec.md §4.5).
type Summary struct {
	Name       string
	AgentCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Manager persists teams as one JSON file per team under dir
// (spec.md §6: `~/.{appName}/teams/{safeName}.json`), grounded on
// team_manager.go's CreateTeam/ListTeams/UpdateTeam/DeleteTeam API
// shape — the storage backend is swapped from the teacher's SQLite
// tables to the plain JSON files spec.md's external interface requires.
type Manager struct {
	dir        string
	resolveKey func(providerTag string) string
	logger     *slog.Logger

	current *Team
}

// NewManager builds a Manager rooted at dir, creating it if needed.
// resolveKey looks up the process-wide config key for a provider tag;
// it is consulted whenever a loaded agent's apiKey is the "__config__"
// sentinel.
func NewManager(dir string, resolveKey func(providerTag string) string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("team manager: create teams dir: %w", err)
	}
	return &Manager{dir: dir, resolveKey: resolveKey, logger: logger.With("component", "team-manager")}, nil
}

// Current returns the team currently loaded/created in memory, or nil.
func (m *Manager) Current() *Team { return m.current }

// Create starts a new, empty, in-memory team named name. It is not
// persisted until Save is called.
func (m *Manager) Create(name string) *Team {
	now := time.Now()
	t := &Team{Name: name, CreatedAt: now, UpdatedAt: now}
	m.current = t
	m.logger.Info("team created", "name", name)
	return t
}

// AddAgent appends cfg to the current team's roster.
func (m *Manager) AddAgent(cfg agentrt.Config) error {
	if m.current == nil {
		return fmt.Errorf("team manager: no current team; call Create or Load first")
	}
	m.current.Agents = append(m.current.Agents, cfg)
	m.current.UpdatedAt = time.Now()
	return nil
}

// RemoveAgent deletes the agent with the given id from the current
// team's roster.
func (m *Manager) RemoveAgent(id string) error {
	if m.current == nil {
		return fmt.Errorf("team manager: no current team; call Create or Load first")
	}
	kept := m.current.Agents[:0]
	removed := false
	for _, a := range m.current.Agents {
		if a.ID == id {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	if !removed {
		return fmt.Errorf("team manager: no agent with id %q", id)
	}
	m.current.Agents = kept
	m.current.UpdatedAt = time.Now()
	return nil
}

// Save writes the current team to disk. name, if non-empty, renames
// the team before saving (spec.md's save(name?) signature).
func (m *Manager) Save(name string) error {
	if m.current == nil {
		return fmt.Errorf("team manager: no current team to save")
	}
	if name != "" {
		m.current.Name = name
	}
	m.current.UpdatedAt = time.Now()

	ft := fileTeam{Name: m.current.Name, CreatedAt: m.current.CreatedAt, UpdatedAt: m.current.UpdatedAt}
	for _, a := range m.current.Agents {
		apiKey := a.APIKey
		if a.UsesConfigDefault {
			// Serialize the sentinel instead of the resolved secret
			// (spec.md §4.5: "preventing secrets from landing in team
			// files").
			apiKey = configKeySentinel
		}
		ft.Agents = append(ft.Agents, fileAgent{
			ID: a.ID, Name: a.Name, Role: a.Role, SystemPrompt: a.SystemPrompt,
			Provider: a.Provider, Model: a.Model, APIKey: apiKey, OllamaBaseURL: a.OllamaBaseURL,
		})
	}

	raw, err := json.MarshalIndent(ft, "", "  ")
	if err != nil {
		return fmt.Errorf("team manager: marshal team: %w", err)
	}
	path := filepath.Join(m.dir, safeName(ft.Name)+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("team manager: write %s: %w", path, err)
	}
	m.logger.Info("team saved", "name", ft.Name, "agents", len(ft.Agents))
	return nil
}

// Load reads a team by name, resolving any "__config__" sentinel
// apiKey to the current config default, and sets it as current.
func (m *Manager) Load(name string) (*Team, error) {
	path := filepath.Join(m.dir, safeName(name)+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("team manager: load %s: %w", path, err)
	}
	var ft fileTeam
	if err := json.Unmarshal(raw, &ft); err != nil {
		return nil, fmt.Errorf("team manager: parse %s: %w", path, err)
	}

	t := &Team{Name: ft.Name, CreatedAt: ft.CreatedAt, UpdatedAt: ft.UpdatedAt}
	for _, a := range ft.Agents {
		apiKey := a.APIKey
		usesDefault := apiKey == configKeySentinel
		if usesDefault {
			apiKey = m.resolveKeyFor(a.Provider)
		}
		t.Agents = append(t.Agents, agentrt.Config{
			ID: a.ID, Name: a.Name, Role: a.Role, SystemPrompt: a.SystemPrompt,
			Provider: a.Provider, Model: a.Model, APIKey: apiKey, OllamaBaseURL: a.OllamaBaseURL,
			UsesConfigDefault: usesDefault,
		})
	}

	m.current = t
	return t, nil
}

// List returns a summary of every saved team, newest-updated first.
func (m *Manager) List() ([]Summary, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("team manager: read teams dir: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var ft fileTeam
		if err := json.Unmarshal(raw, &ft); err != nil {
			continue
		}
		out = append(out, Summary{Name: ft.Name, AgentCount: len(ft.Agents), CreatedAt: ft.CreatedAt, UpdatedAt: ft.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes a team's file. If it matches the current team, the
// current team is cleared (spec.md §4.5: "delete clears currentTeam if
// it matched").
func (m *Manager) Delete(name string) error {
	path := filepath.Join(m.dir, safeName(name)+".json")
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("team manager: delete %s: %w", path, err)
	}
	if m.current != nil && m.current.Name == name {
		m.current = nil
	}
	m.logger.Info("team deleted", "name", name)
	return nil
}

func (m *Manager) resolveKeyFor(providerTag string) string {
	if m.resolveKey == nil {
		return ""
	}
	return m.resolveKey(providerTag)
}

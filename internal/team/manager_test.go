package team

import (
	"testing"

	"github.com/jholhewres/crewcode/internal/agentrt"
)

func newTestManager(t *testing.T, resolveKey func(string) string) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), resolveKey, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManager_SaveLoad_RoundTripsAgentsAndConfigDefaultSentinel(t *testing.T) {
	t.Parallel()
	resolve := func(providerTag string) string { return "resolved-" + providerTag }
	m := newTestManager(t, resolve)

	m.Create("Squad")
	if err := m.AddAgent(agentrt.Config{
		ID: "architect", Name: "Architect", Role: "architect", Provider: "claude",
		Model: "claude-3", APIKey: "", UsesConfigDefault: true,
	}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := m.AddAgent(agentrt.Config{
		ID: "frontend", Name: "Frontend", Role: "frontend engineer", Provider: "grok",
		Model: "grok-1", APIKey: "explicit-secret-key", UsesConfigDefault: false,
	}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}

	if err := m.Save(""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := newTestManager(t, resolve)
	// Point the second manager at the same directory so it reads what m wrote.
	m2.dir = m.dir

	loaded, err := m2.Load("Squad")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(loaded.Agents))
	}

	arch := loaded.Agents[0]
	if !arch.UsesConfigDefault {
		t.Errorf("expected architect to round-trip UsesConfigDefault=true")
	}
	if arch.APIKey != "resolved-claude" {
		t.Errorf("expected architect's key resolved via config lookup, got %q", arch.APIKey)
	}

	fe := loaded.Agents[1]
	if fe.UsesConfigDefault {
		t.Errorf("expected frontend to round-trip UsesConfigDefault=false")
	}
	if fe.APIKey != "explicit-secret-key" {
		t.Errorf("expected frontend's explicit key preserved, got %q", fe.APIKey)
	}
}

func TestManager_Save_KeepsExplicitKeyLiteralEvenWhenItEqualsConfigValue(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, func(string) string { return "should-not-appear" })
	m.Create("Squad2")
	// An agent whose explicit key happens to equal what config resolution
	// would produce, but was NOT set via config default -- must still be
	// saved as a literal value (UsesConfigDefault is the source of truth,
	// not value equality).
	if err := m.AddAgent(agentrt.Config{
		ID: "x", Name: "X", Role: "r", Provider: "groq",
		APIKey: "should-not-appear", UsesConfigDefault: false,
	}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := m.Save(""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := m.Load("Squad2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Agents[0].UsesConfigDefault {
		t.Errorf("agent with an explicit (non-sentinel) key must not round-trip as config-default")
	}
	if loaded.Agents[0].APIKey != "should-not-appear" {
		t.Errorf("explicit key must survive the round trip unchanged, got %q", loaded.Agents[0].APIKey)
	}
}

func TestManager_List_ReturnsSummariesNewestFirst(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)

	m.Create("Alpha")
	if err := m.Save(""); err != nil {
		t.Fatalf("Save Alpha: %v", err)
	}
	m.Create("Beta")
	if err := m.AddAgent(agentrt.Config{ID: "b1", Name: "B1", Role: "r"}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := m.Save(""); err != nil {
		t.Fatalf("Save Beta: %v", err)
	}

	summaries, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(summaries))
	}
	names := map[string]int{}
	for _, s := range summaries {
		names[s.Name] = s.AgentCount
	}
	if names["Alpha"] != 0 || names["Beta"] != 1 {
		t.Errorf("unexpected summaries: %+v", summaries)
	}
	if summaries[0].Name != "Beta" {
		t.Errorf("expected the most recently saved team (Beta) first, got %+v", summaries)
	}
}

func TestManager_Delete_ClearsCurrentOnlyWhenNameMatches(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)
	m.Create("Gamma")
	if err := m.Save(""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.Delete("Gamma"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Current() != nil {
		t.Errorf("expected current team cleared after deleting it")
	}
	if err := m.Delete("Gamma"); err == nil {
		t.Errorf("expected error deleting an already-removed team")
	}
}

func TestSafeName_FoldsUnsafeCharacters(t *testing.T) {
	t.Parallel()
	if got := safeName("My Team! #1"); got != "My_Team___1" {
		t.Errorf("safeName(%q) = %q", "My Team! #1", got)
	}
}

func TestManager_AddAgent_RemoveAgent_RequireCurrentTeam(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, nil)
	if err := m.AddAgent(agentrt.Config{ID: "x"}); err == nil {
		t.Errorf("expected error adding an agent with no current team")
	}
	if err := m.RemoveAgent("x"); err == nil {
		t.Errorf("expected error removing an agent with no current team")
	}

	m.Create("Delta")
	if err := m.AddAgent(agentrt.Config{ID: "x", Name: "X"}); err != nil {
		t.Fatalf("AddAgent: %v", err)
	}
	if err := m.RemoveAgent("nonexistent"); err == nil {
		t.Errorf("expected error removing an agent that doesn't exist")
	}
	if err := m.RemoveAgent("x"); err != nil {
		t.Fatalf("RemoveAgent: %v", err)
	}
	if len(m.Current().Agents) != 0 {
		t.Errorf("expected agent removed from current team")
	}
}

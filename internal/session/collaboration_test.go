package session

import (
	"testing"

	"github.com/polychat-ai/polychat/pkg/types"
)

func sessionWithCounts(counts map[string]int) *types.Session {
	s := &types.Session{}
	for agentID, n := range counts {
		s.AgentIDs = append(s.AgentIDs, agentID)
		for i := 0; i < n; i++ {
			s.Messages = append(s.Messages, types.Message{
				Role:    types.RoleAssistant,
				Content: "m",
				AgentID: agentID,
			})
		}
	}
	return s
}

func TestAnalyzeCollaborationSingleAgent(t *testing.T) {
	report := AnalyzeCollaboration(sessionWithCounts(map[string]int{"a": 10}))

	if report.ActiveAgents != 1 {
		t.Fatalf("active agents = %d, want 1", report.ActiveAgents)
	}
	if report.CollaborationScore != 0 {
		t.Errorf("score = %f, want 0 for a single voice", report.CollaborationScore)
	}
}

func TestAnalyzeCollaborationEmptySession(t *testing.T) {
	report := AnalyzeCollaboration(&types.Session{AgentIDs: []string{"a", "b"}})

	if report.TotalAgents != 2 {
		t.Errorf("total agents = %d, want 2", report.TotalAgents)
	}
	if report.ActiveAgents != 0 {
		t.Errorf("active agents = %d, want 0", report.ActiveAgents)
	}
	if report.CollaborationScore != 0 {
		t.Errorf("score = %f, want 0", report.CollaborationScore)
	}
}

func TestAnalyzeCollaborationEvenSplit(t *testing.T) {
	report := AnalyzeCollaboration(sessionWithCounts(map[string]int{"a": 5, "b": 5}))

	if report.CollaborationScore != 100 {
		t.Errorf("score = %f, want 100 for an even split", report.CollaborationScore)
	}
}

func TestAnalyzeCollaborationSkewedSplit(t *testing.T) {
	skewed := AnalyzeCollaboration(sessionWithCounts(map[string]int{"a": 9, "b": 1}))
	even := AnalyzeCollaboration(sessionWithCounts(map[string]int{"a": 5, "b": 5}))

	// variance = ((9-5)^2 + (1-5)^2) / 2 = 16 over total^2 = 100.
	if skewed.CollaborationScore != 84 {
		t.Errorf("score = %f, want 84", skewed.CollaborationScore)
	}
	if skewed.CollaborationScore <= 0 || skewed.CollaborationScore >= 100 {
		t.Errorf("skewed score %f must be strictly between 0 and 100", skewed.CollaborationScore)
	}
	if skewed.CollaborationScore >= even.CollaborationScore {
		t.Errorf("skewed score %f should be below even score %f", skewed.CollaborationScore, even.CollaborationScore)
	}
}

func TestAnalyzeCollaborationIgnoresNonAgentMessages(t *testing.T) {
	s := &types.Session{
		AgentIDs: []string{"a"},
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "hi"},
			{Role: types.RoleAssistant, Content: "unattributed"},
			{Role: types.RoleSystem, Content: "setup"},
			{Role: types.RoleAssistant, Content: "counted", AgentID: "a"},
		},
	}

	report := AnalyzeCollaboration(s)
	if report.ActiveAgents != 1 {
		t.Fatalf("active agents = %d, want 1", report.ActiveAgents)
	}
	if got := report.Contributions[0].MessageCount; got != 1 {
		t.Errorf("message count = %d, want 1", got)
	}
}

func TestAnalyzeCollaborationOrderingAndNames(t *testing.T) {
	s := &types.Session{
		AgentIDs: []string{"a", "b", "c"},
		Messages: []types.Message{
			{Role: types.RoleAssistant, AgentID: "a", AgentName: "Alpha"},
			{Role: types.RoleAssistant, AgentID: "b"},
			{Role: types.RoleAssistant, AgentID: "c", AgentName: "Old Name"},
			{Role: types.RoleAssistant, AgentID: "c", AgentName: "New Name"},
			{Role: types.RoleAssistant, AgentID: "c"},
		},
	}

	report := AnalyzeCollaboration(s)
	if len(report.Contributions) != 3 {
		t.Fatalf("contributions = %d, want 3", len(report.Contributions))
	}

	// Sorted by count descending; the a/b tie keeps first-observed order.
	if report.Contributions[0].AgentID != "c" {
		t.Errorf("top contributor = %s, want c", report.Contributions[0].AgentID)
	}
	if report.Contributions[1].AgentID != "a" || report.Contributions[2].AgentID != "b" {
		t.Errorf("tie order = %s, %s, want a, b",
			report.Contributions[1].AgentID, report.Contributions[2].AgentID)
	}

	// Most recent display name wins; missing names fall back to the id.
	if report.Contributions[0].AgentName != "New Name" {
		t.Errorf("agent name = %s, want New Name", report.Contributions[0].AgentName)
	}
	if report.Contributions[2].AgentName != "b" {
		t.Errorf("agent name = %s, want id fallback b", report.Contributions[2].AgentName)
	}
}

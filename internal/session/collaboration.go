package session

import (
	"math"
	"sort"

	"github.com/polychat-ai/polychat/pkg/types"
)

// AnalyzeCollaboration scores how evenly message volume is distributed
// across the agents active in a session. Pure: no I/O, no mutation.
//
// The score is 0 for a single voice, and otherwise maps the population
// variance of per-agent message counts against an even split onto 0-100,
// normalized by totalMessages². Even participation approaches 100.
func AnalyzeCollaboration(session *types.Session) types.CollaborationReport {
	type bucket struct {
		count int
		name  string
	}

	counts := make(map[string]*bucket)
	var order []string

	for i := range session.Messages {
		msg := &session.Messages[i]
		if msg.Role != types.RoleAssistant || msg.AgentID == "" {
			continue
		}

		b, ok := counts[msg.AgentID]
		if !ok {
			b = &bucket{}
			counts[msg.AgentID] = b
			order = append(order, msg.AgentID)
		}
		b.count++
		// Most recently seen display name wins.
		if msg.AgentName != "" {
			b.name = msg.AgentName
		}
	}

	contributions := make([]types.AgentContribution, 0, len(order))
	for _, agentID := range order {
		b := counts[agentID]
		name := b.name
		if name == "" {
			name = agentID
		}
		contributions = append(contributions, types.AgentContribution{
			AgentID:      agentID,
			AgentName:    name,
			MessageCount: b.count,
		})
	}

	// Stable: ties keep first-observed order.
	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].MessageCount > contributions[j].MessageCount
	})

	report := types.CollaborationReport{
		TotalAgents:   len(session.AgentIDs),
		ActiveAgents:  len(contributions),
		Contributions: contributions,
	}

	// A single voice cannot collaborate.
	if report.ActiveAgents <= 1 {
		return report
	}

	totalMessages := 0
	for _, c := range contributions {
		totalMessages += c.MessageCount
	}

	ideal := float64(totalMessages) / float64(report.ActiveAgents)
	variance := 0.0
	for _, c := range contributions {
		variance += math.Pow(float64(c.MessageCount)-ideal, 2)
	}
	variance /= float64(report.ActiveAgents)

	maxVariance := math.Pow(float64(totalMessages), 2)
	report.CollaborationScore = math.Max(0, math.Min(100, 100*(1-variance/maxVariance)))

	return report
}

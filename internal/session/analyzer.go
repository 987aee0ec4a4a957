package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polychat-ai/polychat/internal/agent"
	"github.com/polychat-ai/polychat/internal/event"
	"github.com/polychat-ai/polychat/internal/gateway"
	"github.com/polychat-ai/polychat/internal/logging"
	"github.com/polychat-ai/polychat/pkg/types"
)

// Placeholder strings returned by QuickSummary.
const (
	summaryNotStarted  = "会话尚未开始"
	summaryUnavailable = "无法生成摘要"
)

const analystSystemPrompt = "你是一个专业的会话分析师，擅长从对话中提取关键信息和洞见。"

// Analyzer derives structured analyses from session transcripts by
// prompting an analyst agent through the generation gateway.
type Analyzer struct {
	gw  gateway.Gateway
	bus *event.Bus
	log zerolog.Logger
}

// NewAnalyzer creates an analyzer. bus may be nil.
func NewAnalyzer(gw gateway.Gateway, bus *event.Bus) *Analyzer {
	return &Analyzer{
		gw:  gw,
		bus: bus,
		log: logging.For("analyzer"),
	}
}

// AnalyzeSession analyzes a session transcript. Analysis is best-effort:
// gateway failures and malformed model output degrade to a partial result,
// never to an error. The session itself is never written to.
func (a *Analyzer) AnalyzeSession(ctx context.Context, session *types.Session, opts *types.AnalysisOptions) *types.SessionAnalysis {
	cfg := resolveOptions(opts)

	analysis := &types.SessionAnalysis{
		KeyPoints:         []string{},
		NextSteps:         []string{},
		RelatedTopics:     []string{},
		MessageCount:      len(session.Messages),
		AgentContribution: make(map[string]int),
	}

	// Contribution counts cover the full message list, not the window sent
	// to the model.
	for i := range session.Messages {
		msg := &session.Messages[i]
		if msg.Role == types.RoleAssistant && msg.AgentID != "" {
			analysis.AgentContribution[msg.AgentID]++
		}
	}

	window := analysisWindow(session.Messages, cfg.maxMessages)
	if len(window) == 0 || a.gw == nil {
		return analysis
	}

	prompt := buildAnalysisPrompt(window, cfg)
	agentID := a.resolveAnalysisAgent(ctx, session)

	result, err := a.gw.Generate(ctx, agentID, &gateway.GenerateRequest{
		Messages: []gateway.ChatMessage{
			{Role: types.RoleSystem, Content: analystSystemPrompt},
			{Role: types.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		a.log.Debug().Err(err).Str("session", session.ID).Msg("analysis generation failed, returning partial result")
		return analysis
	}

	if result != nil && result.Text != "" {
		parseAnalysisText(result.Text, analysis)
	}

	if a.bus != nil {
		a.bus.Publish(event.Event{
			Type: event.AnalysisCompleted,
			Data: event.AnalysisData{SessionID: session.ID, Analysis: analysis},
		})
	}

	return analysis
}

// QuickSummary produces only a short summary over the last 20 messages.
func (a *Analyzer) QuickSummary(ctx context.Context, session *types.Session) string {
	if len(session.Messages) == 0 {
		return summaryNotStarted
	}

	analysis := a.AnalyzeSession(ctx, session, &types.AnalysisOptions{
		IncludeSummary:       types.Bool(true),
		IncludeKeyPoints:     types.Bool(false),
		IncludeNextSteps:     types.Bool(false),
		IncludeRelatedTopics: types.Bool(false),
		MaxMessages:          20,
	})

	if analysis.Summary == "" {
		return summaryUnavailable
	}
	return analysis.Summary
}

// resolveAnalysisAgent prefers the dedicated analyst agent, falling back to
// the session's default agent. Lookup failures never propagate.
func (a *Analyzer) resolveAnalysisAgent(ctx context.Context, session *types.Session) string {
	analyst, err := a.gw.GetAgent(ctx, agent.AnalystName)
	if err != nil || analyst == nil {
		return session.DefaultAgentID
	}
	return agent.AnalystName
}

// analysisConfig is AnalysisOptions with every field resolved.
type analysisConfig struct {
	summary       bool
	keyPoints     bool
	nextSteps     bool
	relatedTopics bool
	maxMessages   int
}

// resolveOptions merges opts over the defaults. Unset section toggles mean
// enabled; a non-positive MaxMessages means 50.
func resolveOptions(opts *types.AnalysisOptions) analysisConfig {
	cfg := analysisConfig{
		summary:       true,
		keyPoints:     true,
		nextSteps:     true,
		relatedTopics: true,
		maxMessages:   50,
	}
	if opts == nil {
		return cfg
	}
	if opts.IncludeSummary != nil {
		cfg.summary = *opts.IncludeSummary
	}
	if opts.IncludeKeyPoints != nil {
		cfg.keyPoints = *opts.IncludeKeyPoints
	}
	if opts.IncludeNextSteps != nil {
		cfg.nextSteps = *opts.IncludeNextSteps
	}
	if opts.IncludeRelatedTopics != nil {
		cfg.relatedTopics = *opts.IncludeRelatedTopics
	}
	if opts.MaxMessages > 0 {
		cfg.maxMessages = opts.MaxMessages
	}
	return cfg
}

// analysisWindow returns the most recent non-system messages, capped at max.
func analysisWindow(messages []types.Message, max int) []types.Message {
	filtered := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != types.RoleSystem {
			filtered = append(filtered, msg)
		}
	}
	if len(filtered) > max {
		filtered = filtered[len(filtered)-max:]
	}
	return filtered
}

// buildAnalysisPrompt builds the analysis instruction followed by a
// role-prefixed transcript and the JSON-format request.
func buildAnalysisPrompt(messages []types.Message, cfg analysisConfig) string {
	var b strings.Builder
	b.WriteString("请分析以下对话内容")

	if cfg.summary {
		b.WriteString("，并提供一个简短摘要")
	}
	if cfg.keyPoints {
		b.WriteString("，列出3-5个关键要点")
	}
	if cfg.nextSteps {
		b.WriteString("，提出2-3个可能的后续步骤或问题")
	}
	if cfg.relatedTopics {
		b.WriteString("，建议2-3个相关话题")
	}
	b.WriteString(":\n\n")

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case types.RoleAssistant:
			role = msg.AgentName
			if role == "" {
				role = "助手"
			}
		case types.RoleUser:
			role = "用户"
		default:
			role = "系统"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
	}

	b.WriteString("\n请以JSON格式返回结果，包含以下字段：summary, keyPoints, nextSteps, relatedTopics")
	return b.String()
}

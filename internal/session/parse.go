package session

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/polychat-ai/polychat/pkg/types"
)

// Patterns over free-form model output. The JSON path is preferred; the
// header patterns match the literal section titles the analysis prompt asks
// for, with ASCII and full-width colons both accepted.
var (
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

	summaryPattern   = regexp.MustCompile(`(?m)摘要[:：]\s*(.+)$`)
	keyPointsPattern = regexp.MustCompile(`(?s)关键要点[:：]?\s*(.*?)(?:后续步骤|相关话题|$)`)
	nextStepsPattern = regexp.MustCompile(`(?s)后续步骤[:：]?\s*(.*?)(?:相关话题|$)`)
	topicsPattern    = regexp.MustCompile(`(?s)相关话题[:：]?\s*(.*)$`)

	bulletPattern = regexp.MustCompile(`(?m)^\s*[-•*]\s*(.+)$`)
)

// parsedAnalysis mirrors the JSON shape the model is asked to return.
// List fields are raw so non-array values can be ignored instead of failing
// the whole parse.
type parsedAnalysis struct {
	Summary        string          `json:"summary"`
	KeyPoints      json.RawMessage `json:"keyPoints"`
	NextSteps      json.RawMessage `json:"nextSteps"`
	RelatedTopics  json.RawMessage `json:"relatedTopics"`
	SentimentScore *float64        `json:"sentimentScore"`
	Complexity     *float64        `json:"complexity"`
}

// parseAnalysisText extracts analysis fields from model output into
// analysis. It first tries to parse a JSON object substring; if none parses,
// it falls back to heuristic extraction keyed on the literal section
// headers. Fields that cannot be extracted are left untouched.
func parseAnalysisText(text string, analysis *types.SessionAnalysis) {
	if match := jsonObjectPattern.FindString(text); match != "" {
		var parsed parsedAnalysis
		if err := json.Unmarshal([]byte(match), &parsed); err == nil {
			applyParsed(&parsed, analysis)
			return
		}
	}

	applyHeuristics(text, analysis)
}

func applyParsed(parsed *parsedAnalysis, analysis *types.SessionAnalysis) {
	if parsed.Summary != "" {
		analysis.Summary = parsed.Summary
	}
	if items, ok := stringList(parsed.KeyPoints); ok {
		analysis.KeyPoints = items
	}
	if items, ok := stringList(parsed.NextSteps); ok {
		analysis.NextSteps = items
	}
	if items, ok := stringList(parsed.RelatedTopics); ok {
		analysis.RelatedTopics = items
	}
	analysis.SentimentScore = parsed.SentimentScore
	analysis.Complexity = parsed.Complexity
}

// stringList unmarshals raw JSON into a string slice, reporting false for
// absent or non-array values.
func stringList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func applyHeuristics(text string, analysis *types.SessionAnalysis) {
	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		analysis.Summary = strings.TrimSpace(m[1])
	}
	if m := keyPointsPattern.FindStringSubmatch(text); m != nil {
		if items := bullets(m[1]); len(items) > 0 {
			analysis.KeyPoints = items
		}
	}
	if m := nextStepsPattern.FindStringSubmatch(text); m != nil {
		if items := bullets(m[1]); len(items) > 0 {
			analysis.NextSteps = items
		}
	}
	if m := topicsPattern.FindStringSubmatch(text); m != nil {
		if items := bullets(m[1]); len(items) > 0 {
			analysis.RelatedTopics = items
		}
	}
}

// bullets extracts the text of bulleted lines ("-", "•", "*" prefixes).
func bullets(section string) []string {
	matches := bulletPattern.FindAllStringSubmatch(section, -1)
	if matches == nil {
		return nil
	}
	items := make([]string, 0, len(matches))
	for _, m := range matches {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}

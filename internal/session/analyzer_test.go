package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/polychat-ai/polychat/internal/agent"
	"github.com/polychat-ai/polychat/internal/gateway"
	"github.com/polychat-ai/polychat/pkg/types"
)

type generateCall struct {
	agentID string
	req     *gateway.GenerateRequest
}

// fakeGateway records generation calls and serves canned responses.
type fakeGateway struct {
	agents   map[string]*agent.Agent
	response string
	genererr error
	calls    []generateCall
}

func (f *fakeGateway) IsRunning() bool { return true }

func (f *fakeGateway) GetAgent(_ context.Context, name string) (*agent.Agent, error) {
	if a, ok := f.agents[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("agent %s not found", name)
}

func (f *fakeGateway) Generate(_ context.Context, agentID string, req *gateway.GenerateRequest) (*gateway.GenerateResult, error) {
	f.calls = append(f.calls, generateCall{agentID: agentID, req: req})
	if f.genererr != nil {
		return nil, f.genererr
	}
	return &gateway.GenerateResult{Text: f.response}, nil
}

func (f *fakeGateway) StreamGenerate(_ context.Context, agentID string, req *gateway.GenerateRequest) (gateway.Stream, error) {
	result, err := f.Generate(context.Background(), agentID, req)
	if err != nil {
		return nil, err
	}
	return &fakeStream{chunks: []string{result.Text}}, nil
}

type fakeStream struct {
	chunks []string
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fakeStream) Close() {}

func chatSession(messages ...types.Message) *types.Session {
	return &types.Session{
		ID:             "sess-1",
		AgentIDs:       []string{"helper", "critic"},
		DefaultAgentID: "helper",
		Messages:       messages,
	}
}

var _ = Describe("Analyzer", func() {
	var (
		gw       *fakeGateway
		analyzer *Analyzer
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = &fakeGateway{
			agents: map[string]*agent.Agent{
				agent.AnalystName: {Name: agent.AnalystName, BuiltIn: true},
			},
			response: `{"summary": "一次简短的问候", "keyPoints": ["互相问好"], "nextSteps": [], "relatedTopics": []}`,
		}
		analyzer = NewAnalyzer(gw, nil)
	})

	Describe("AnalyzeSession", func() {
		It("returns a seeded result without calling the model for an empty session", func() {
			result := analyzer.AnalyzeSession(ctx, chatSession(), nil)

			Expect(result).NotTo(BeNil())
			Expect(result.MessageCount).To(BeZero())
			Expect(result.Summary).To(BeEmpty())
			Expect(result.KeyPoints).To(BeEmpty())
			Expect(result.AgentContribution).To(BeEmpty())
			Expect(gw.calls).To(BeEmpty())
		})

		It("skips the model when only system messages exist", func() {
			result := analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleSystem, Content: "setup"},
			), nil)

			Expect(result.MessageCount).To(Equal(1))
			Expect(gw.calls).To(BeEmpty())
		})

		It("routes analysis through the analyst agent when available", func() {
			analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			), nil)

			Expect(gw.calls).To(HaveLen(1))
			Expect(gw.calls[0].agentID).To(Equal(agent.AnalystName))
			Expect(gw.calls[0].req.Messages[0].Role).To(Equal(types.RoleSystem))
			Expect(gw.calls[0].req.Messages[0].Content).To(ContainSubstring("会话分析师"))
		})

		It("falls back to the session default agent when no analyst exists", func() {
			gw.agents = nil

			analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			), nil)

			Expect(gw.calls).To(HaveLen(1))
			Expect(gw.calls[0].agentID).To(Equal("helper"))
		})

		It("parses a JSON response into the analysis", func() {
			result := analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
				types.Message{Role: types.RoleAssistant, Content: "你好！", AgentID: "helper"},
			), nil)

			Expect(result.Summary).To(Equal("一次简短的问候"))
			Expect(result.KeyPoints).To(ConsistOf("互相问好"))
			Expect(result.MessageCount).To(Equal(2))
			Expect(result.AgentContribution).To(HaveKeyWithValue("helper", 1))
		})

		It("counts contributions over the full list even when the window is capped", func() {
			messages := []types.Message{
				{Role: types.RoleAssistant, Content: "one", AgentID: "helper"},
				{Role: types.RoleAssistant, Content: "two", AgentID: "critic"},
				{Role: types.RoleAssistant, Content: "three", AgentID: "helper"},
			}

			result := analyzer.AnalyzeSession(ctx, chatSession(messages...), &types.AnalysisOptions{
				MaxMessages: 1,
			})

			Expect(result.MessageCount).To(Equal(3))
			Expect(result.AgentContribution).To(HaveKeyWithValue("helper", 2))
			Expect(result.AgentContribution).To(HaveKeyWithValue("critic", 1))

			// Only the last message reaches the model.
			transcript := gw.calls[0].req.Messages[1].Content
			Expect(transcript).To(ContainSubstring("three"))
			Expect(transcript).NotTo(ContainSubstring("one"))
		})

		It("degrades to a partial result when generation fails", func() {
			gw.genererr = errors.New("model unavailable")

			result := analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
				types.Message{Role: types.RoleAssistant, Content: "hi", AgentID: "helper"},
			), nil)

			Expect(result).NotTo(BeNil())
			Expect(result.Summary).To(BeEmpty())
			Expect(result.MessageCount).To(Equal(2))
			Expect(result.AgentContribution).To(HaveKeyWithValue("helper", 1))
		})

		It("builds the prompt from the enabled sections", func() {
			analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "哪些功能最重要？"},
				types.Message{Role: types.RoleAssistant, Content: "搜索和导出。", AgentID: "helper", AgentName: "小助"},
			), &types.AnalysisOptions{
				IncludeNextSteps:     types.Bool(false),
				IncludeRelatedTopics: types.Bool(false),
				MaxMessages:          50,
			})

			prompt := gw.calls[0].req.Messages[1].Content
			Expect(prompt).To(HavePrefix("请分析以下对话内容"))
			Expect(prompt).To(ContainSubstring("简短摘要"))
			Expect(prompt).To(ContainSubstring("关键要点"))
			Expect(prompt).NotTo(ContainSubstring("后续步骤"))
			Expect(prompt).NotTo(ContainSubstring("相关话题"))
			Expect(prompt).To(ContainSubstring("用户: 哪些功能最重要？"))
			Expect(prompt).To(ContainSubstring("小助: 搜索和导出。"))
			Expect(prompt).To(ContainSubstring("请以JSON格式返回结果"))
		})

		It("keeps every section enabled when options only cap the window", func() {
			analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "hello"},
			), &types.AnalysisOptions{MaxMessages: 10})

			prompt := gw.calls[0].req.Messages[1].Content
			Expect(prompt).To(ContainSubstring("简短摘要"))
			Expect(prompt).To(ContainSubstring("关键要点"))
			Expect(prompt).To(ContainSubstring("后续步骤"))
			Expect(prompt).To(ContainSubstring("相关话题"))
		})

		It("labels unattributed assistant turns generically", func() {
			analyzer.AnalyzeSession(ctx, chatSession(
				types.Message{Role: types.RoleAssistant, Content: "回答"},
			), nil)

			prompt := gw.calls[0].req.Messages[1].Content
			Expect(prompt).To(ContainSubstring("助手: 回答"))
		})
	})

	Describe("QuickSummary", func() {
		It("returns the not-started placeholder for an empty session", func() {
			Expect(analyzer.QuickSummary(ctx, chatSession())).To(Equal("会话尚未开始"))
			Expect(gw.calls).To(BeEmpty())
		})

		It("returns the model summary", func() {
			summary := analyzer.QuickSummary(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			))

			Expect(summary).To(Equal("一次简短的问候"))
		})

		It("requests only the summary section", func() {
			analyzer.QuickSummary(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			))

			prompt := gw.calls[0].req.Messages[1].Content
			Expect(prompt).To(ContainSubstring("简短摘要"))
			Expect(prompt).NotTo(ContainSubstring("关键要点"))
		})

		It("returns the unavailable placeholder when generation fails", func() {
			gw.genererr = errors.New("model unavailable")

			summary := analyzer.QuickSummary(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			))

			Expect(summary).To(Equal("无法生成摘要"))
		})

		It("returns the unavailable placeholder for an unparseable response", func() {
			gw.response = strings.Repeat("杂乱输出 ", 3)

			summary := analyzer.QuickSummary(ctx, chatSession(
				types.Message{Role: types.RoleUser, Content: "你好"},
			))

			Expect(summary).To(Equal("无法生成摘要"))
		})
	})
})

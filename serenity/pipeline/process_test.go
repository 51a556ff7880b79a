package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"serenity/serenity/services/llm"
)

// scriptedGenerator answers analysis and generation prompts separately and
// records every prompt it saw.
type scriptedGenerator struct {
	analysis    func() (*llm.Result, error)
	generation  func() (*llm.Result, error)
	prompts     []string
	generations int
}

func (g *scriptedGenerator) GenerateContent(_ context.Context, prompt string) (*llm.Result, error) {
	g.prompts = append(g.prompts, prompt)
	if strings.Contains(prompt, "Analyze this therapy message") {
		return g.analysis()
	}
	g.generations++
	return g.generation()
}

const validAnalysisJSON = `{
  "emotionalState": "anxious",
  "themes": ["work"],
  "riskLevel": 2,
  "recommendedApproach": "grounding",
  "progressIndicators": []
}`

func TestProcessChatMessageHappyPath(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult(validAnalysisJSON), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult("Let's try a grounding exercise together."), nil },
	}
	p := New(gen, zap.NewNop())

	result := p.ProcessChatMessage(context.Background(), MessageEvent{Message: "I feel anxious"})

	assert.Equal(t, "Let's try a grounding exercise together.", result.Response)
	assert.Equal(t, AnalysisResult{
		EmotionalState:      "anxious",
		Themes:              []string{"work"},
		RiskLevel:           2,
		RecommendedApproach: "grounding",
		ProgressIndicators:  []string{},
	}, result.Analysis)
	assert.Equal(t, Memory{
		UserProfile: UserProfile{
			EmotionalState: []string{"anxious"},
			RiskLevel:      2,
			Preferences:    map[string]string{},
		},
		SessionContext: SessionContext{
			ConversationThemes: []string{"work"},
			CurrentTechnique:   nil,
		},
	}, result.UpdatedMemory)
}

func TestProcessChatMessageAnalysisFailureStillResponds(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return nil, errors.New("model unavailable") },
		generation: func() (*llm.Result, error) { return llm.TextResult("I hear you."), nil },
	}
	p := New(gen, zap.NewNop())

	result := p.ProcessChatMessage(context.Background(), MessageEvent{Message: "hello"})

	assert.Equal(t, NeutralAnalysis(), result.Analysis)
	assert.Equal(t, 0.0, result.UpdatedMemory.UserProfile.RiskLevel)
	assert.Equal(t, 1, gen.generations, "generation must not be short-circuited by analysis failure")
	assert.Equal(t, "I hear you.", result.Response)
}

func TestProcessChatMessageUnparsableAnalysisFallsBackToNeutral(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult("I cannot produce JSON today"), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult("Tell me more."), nil },
	}
	p := New(gen, zap.NewNop())

	result := p.ProcessChatMessage(context.Background(), MessageEvent{Message: "hi"})
	assert.Equal(t, NeutralAnalysis(), result.Analysis)
}

func TestProcessChatMessageEmptyGenerationUsesFallbackReply(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult(validAnalysisJSON), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult(""), nil },
	}
	p := New(gen, zap.NewNop())

	result := p.ProcessChatMessage(context.Background(), MessageEvent{Message: "hi"})
	assert.Equal(t, FallbackReply, result.Response)
	assert.Equal(t, "anxious", result.Analysis.EmotionalState, "analysis survives a generation failure")
}

func TestProcessChatMessageOuterFallbackKeepsInputMemory(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult(validAnalysisJSON), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult("should never be reached"), nil },
	}
	p := New(gen, zap.NewNop())

	input := DefaultMemory()
	input.UserProfile.EmotionalState = []string{"calm"}
	input.UserProfile.RiskLevel = 1

	// Simulate a bug firing between update-memory and generate-response.
	result := p.ProcessChatMessageObserved(context.Background(),
		MessageEvent{Message: "hi", Memory: &input},
		func(u StepUpdate) {
			if u.Step == "generate-response" {
				panic("simulated bug")
			}
		})

	assert.Equal(t, FallbackReply, result.Response)
	assert.Equal(t, NeutralAnalysis(), result.Analysis)
	assert.Equal(t, input, result.UpdatedMemory, "outer fallback returns the original, unmodified input memory")
}

func TestRiskAlertFiresAboveThreshold(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	gen := &scriptedGenerator{
		analysis: func() (*llm.Result, error) {
			return llm.TextResult(`{"emotionalState":"distressed","themes":[],"riskLevel":5,"recommendedApproach":"crisis","progressIndicators":[]}`), nil
		},
		generation: func() (*llm.Result, error) { return llm.TextResult("You are not alone."), nil },
	}
	p := New(gen, zap.New(core))

	p.ProcessChatMessage(context.Background(), MessageEvent{Message: "I can't go on", SessionID: "s-1"})

	entries := logs.FilterMessage("High risk level detected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, 5.0, entries[0].ContextMap()["risk_level"])
	assert.Equal(t, "I can't go on", entries[0].ContextMap()["message"])
}

func TestRiskAlertSilentAtOrBelowThreshold(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	gen := &scriptedGenerator{
		analysis: func() (*llm.Result, error) {
			return llm.TextResult(`{"emotionalState":"low","themes":[],"riskLevel":4,"recommendedApproach":"supportive","progressIndicators":[]}`), nil
		},
		generation: func() (*llm.Result, error) { return llm.TextResult("ok"), nil },
	}
	p := New(gen, zap.New(core))

	p.ProcessChatMessage(context.Background(), MessageEvent{Message: "feeling low"})
	assert.Equal(t, 0, logs.FilterMessage("High risk level detected").Len())
}

func TestAnalysisPromptEmbedsContext(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult(validAnalysisJSON), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult("ok"), nil },
	}
	p := New(gen, zap.NewNop())

	p.ProcessChatMessage(context.Background(), MessageEvent{
		Message: "I feel anxious",
		Goals:   []string{"sleep better"},
	})

	require.NotEmpty(t, gen.prompts)
	analysisPrompt := gen.prompts[0]
	assert.Contains(t, analysisPrompt, "Message: I feel anxious")
	assert.Contains(t, analysisPrompt, "sleep better")
	assert.Contains(t, analysisPrompt, "Return ONLY a valid JSON object")
}

func TestResponsePromptEmbedsAnalysisAndMemory(t *testing.T) {
	gen := &scriptedGenerator{
		analysis:   func() (*llm.Result, error) { return llm.TextResult(validAnalysisJSON), nil },
		generation: func() (*llm.Result, error) { return llm.TextResult("ok"), nil },
	}
	p := New(gen, zap.NewNop())

	p.ProcessChatMessage(context.Background(), MessageEvent{
		Message:      "I feel anxious",
		SystemPrompt: "You are a compassionate therapist.",
	})

	require.Len(t, gen.prompts, 2)
	responsePrompt := gen.prompts[1]
	assert.True(t, strings.HasPrefix(responsePrompt, "You are a compassionate therapist."))
	assert.Contains(t, responsePrompt, `"emotionalState": "anxious"`)
	assert.Contains(t, responsePrompt, `"conversationThemes"`)
	assert.Contains(t, responsePrompt, "Ensure safety and grounding")
}

package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serenity/serenity/services/llm"
)

// RiskAlertThreshold is the fixed risk level above which a safety alert is
// logged. The scale the analysis prompt requests is 0-5; wider values
// still alert.
const RiskAlertThreshold = 4

// Pipeline orchestrates the multi-step analysis/response flows. One
// Pipeline is shared across concurrent runs; all per-run state lives in
// the Runner, so runs for different sessions never interfere.
type Pipeline struct {
	gen    llm.Generator
	logger *zap.Logger

	// Optional collaborator stores for the session-analysis and
	// activity-recommendation flows.
	analysisStore       AnalysisStore
	recommendationStore RecommendationStore
}

// AnalysisStore persists the output of a full-session analysis run.
type AnalysisStore interface {
	SaveSessionAnalysis(ctx context.Context, sessionID, userID string, analysis SessionAnalysis) error
}

// RecommendationStore persists generated activity recommendations.
type RecommendationStore interface {
	SaveRecommendations(ctx context.Context, userID string, recs []ActivityRecommendation) error
}

type Option func(*Pipeline)

func WithAnalysisStore(store AnalysisStore) Option {
	return func(p *Pipeline) { p.analysisStore = store }
}

func WithRecommendationStore(store RecommendationStore) Option {
	return func(p *Pipeline) { p.recommendationStore = store }
}

func New(gen llm.Generator, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{gen: gen, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessChatMessage runs the linear step sequence for one inbound chat
// message: analyze -> update-memory -> [maybe risk-alert] ->
// generate-response. Every step carries its own fallback and the whole
// sequence sits behind an outer recovery boundary, so the caller always
// receives a well-formed result and never an error. Availability is
// deliberately favored over correctness here.
func (p *Pipeline) ProcessChatMessage(ctx context.Context, event MessageEvent) MessageResult {
	return p.ProcessChatMessageObserved(ctx, event, nil)
}

// ProcessChatMessageObserved is ProcessChatMessage with a per-run step
// observer, used by the websocket surface to stream step progress.
func (p *Pipeline) ProcessChatMessageObserved(ctx context.Context, event MessageEvent, observer func(StepUpdate)) (result MessageResult) {
	inputMemory := DefaultMemory()
	if event.Memory != nil {
		inputMemory = *event.Memory
	}

	// Outer failure boundary: anything escaping the per-step fallbacks
	// degrades to a complete fabricated result built from the original,
	// unmodified input memory.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Error in overall processing",
				zap.Any("recover", r),
				zap.String("message", event.Message),
			)
			result = MessageResult{
				Response:      FallbackReply,
				Analysis:      NeutralAnalysis(),
				UpdatedMemory: inputMemory,
			}
		}
	}()

	p.logger.Info("Processing chat message",
		zap.String("message", event.Message),
		zap.Int("history_length", len(event.History)),
	)

	runner := NewRunner(uuid.NewString(), p.logger, observer)

	analysis, _ := RunStep(ctx, runner, "analyze-message", func() (AnalysisResult, error) {
		return p.analyzeMessage(ctx, event, inputMemory), nil
	})

	updatedMemory, _ := RunStep(ctx, runner, "update-memory", func() (Memory, error) {
		return UpdateMemory(inputMemory, analysis), nil
	})

	if analysis.RiskLevel > RiskAlertThreshold {
		_, _ = RunStep(ctx, runner, "trigger-risk-alert", func() (struct{}, error) {
			p.logger.Warn("High risk level detected",
				zap.String("message", event.Message),
				zap.String("session_id", event.SessionID),
				zap.Float64("risk_level", analysis.RiskLevel),
			)
			return struct{}{}, nil
		})
	}

	response, _ := RunStep(ctx, runner, "generate-response", func() (string, error) {
		return p.generateResponse(ctx, event, analysis, updatedMemory), nil
	})

	return MessageResult{
		Response:      response,
		Analysis:      analysis,
		UpdatedMemory: updatedMemory,
	}
}

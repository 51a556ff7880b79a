package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serenity/serenity/services/llm"
	"serenity/serenity/utils/jsonutils"
)

// SessionAnalysis is the structured output of a full-session analysis run.
type SessionAnalysis struct {
	KeyThemes          []string `json:"keyThemes"`
	EmotionalState     string   `json:"emotionalState"`
	AreasOfConcern     []string `json:"areasOfConcern"`
	Recommendations    []string `json:"recommendations"`
	ProgressIndicators []string `json:"progressIndicators"`
}

const sessionPromptFormat = `Analyze this therapy session and provide insights. Return ONLY a valid JSON object with no markdown formatting.
Session Content: %s

Required JSON:
{
  "keyThemes": ["string"],
  "emotionalState": "string",
  "areasOfConcern": ["string"],
  "recommendations": ["string"],
  "progressIndicators": ["string"]
}`

// AnalyzeSession analyzes a completed session transcript for themes,
// concerns and recommendations, persists the result, and logs a concern
// alert if any areas of concern were found.
//
// Unlike ProcessChatMessage this propagates errors: the dispatcher
// redelivers the whole run, and every step here is safe to repeat.
func (p *Pipeline) AnalyzeSession(ctx context.Context, event SessionEvent) (SessionAnalysis, error) {
	runner := NewRunner(uuid.NewString(), p.logger, nil)

	content, err := RunStep(ctx, runner, "get-session-content", func() (string, error) {
		if event.Notes != "" {
			return event.Notes, nil
		}
		if event.Transcript != "" {
			return event.Transcript, nil
		}
		return "", fmt.Errorf("session %s has no notes or transcript", event.SessionID)
	})
	if err != nil {
		return SessionAnalysis{}, err
	}

	analysis, err := RunStep(ctx, runner, "analyze-with-gemini", func() (SessionAnalysis, error) {
		result, err := p.gen.GenerateContent(ctx, fmt.Sprintf(sessionPromptFormat, content))
		if err != nil {
			return SessionAnalysis{}, fmt.Errorf("session analysis generation failed: %w", err)
		}
		rawText := llm.ExtractText(p.logger, "session-analysis", result)

		var parsed SessionAnalysis
		if err := jsonutils.UnmarshalObject(rawText, &parsed); err != nil {
			return SessionAnalysis{}, fmt.Errorf("session analysis parse failed: %w", err)
		}
		return parsed, nil
	})
	if err != nil {
		return SessionAnalysis{}, err
	}

	_, err = RunStep(ctx, runner, "store-analysis", func() (struct{}, error) {
		if p.analysisStore == nil {
			p.logger.Info("Session analysis completed without a store",
				zap.String("session_id", event.SessionID),
			)
			return struct{}{}, nil
		}
		if err := p.analysisStore.SaveSessionAnalysis(ctx, event.SessionID, event.UserID, analysis); err != nil {
			return struct{}{}, fmt.Errorf("storing session analysis failed: %w", err)
		}
		p.logger.Info("Session analysis stored successfully",
			zap.String("session_id", event.SessionID),
		)
		return struct{}{}, nil
	})
	if err != nil {
		return SessionAnalysis{}, err
	}

	if len(analysis.AreasOfConcern) > 0 {
		_, _ = RunStep(ctx, runner, "trigger-concern-alert", func() (struct{}, error) {
			p.logger.Warn("Concerning indicators detected in session analysis",
				zap.String("session_id", event.SessionID),
				zap.Strings("concerns", analysis.AreasOfConcern),
			)
			return struct{}{}, nil
		})
	}

	return analysis, nil
}

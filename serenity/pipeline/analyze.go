package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"serenity/serenity/services/llm"
	"serenity/serenity/utils/jsonutils"
)

const analysisPromptFormat = `Analyze this therapy message and provide insights. Return ONLY a valid JSON object with no markdown formatting.
Message: %s
Context: %s

Required JSON:
{
  "emotionalState": "string",
  "themes": ["string"],
  "riskLevel": number,
  "recommendedApproach": "string",
  "progressIndicators": ["string"]
}`

// analyzeMessage classifies the message's emotional content. On any model
// or parse failure it returns the fixed neutral default so the user-facing
// reply is never aborted by a failed analysis.
func (p *Pipeline) analyzeMessage(ctx context.Context, event MessageEvent, mem Memory) AnalysisResult {
	prompt := fmt.Sprintf(analysisPromptFormat,
		event.Message,
		jsonutils.ToJSON(map[string]interface{}{
			"memory": mem,
			"goals":  goalsOrEmpty(event.Goals),
		}),
	)

	result, err := p.gen.GenerateContent(ctx, prompt)
	if err != nil {
		p.logger.Error("Error in message analysis",
			zap.Error(err),
			zap.String("message", event.Message),
		)
		return NeutralAnalysis()
	}

	rawText := llm.ExtractText(p.logger, "analysis", result)
	p.logger.Info("Raw analysis text", zap.String("raw_text", rawText))

	var parsed AnalysisResult
	if err := jsonutils.UnmarshalObject(rawText, &parsed); err != nil {
		p.logger.Error("Error in message analysis",
			zap.Error(err),
			zap.String("message", event.Message),
		)
		return NeutralAnalysis()
	}

	return normalizeAnalysis(parsed)
}

func goalsOrEmpty(goals []string) []string {
	if goals == nil {
		return []string{}
	}
	return goals
}

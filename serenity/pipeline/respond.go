package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"serenity/serenity/services/llm"
	"serenity/serenity/utils/jsonutils"
)

// FallbackReply is returned whenever response generation fails. It must be
// textually identical on every trigger: the outer pipeline fallback relies
// on it, and it should read as calm, non-alarming boilerplate.
const FallbackReply = "I'm here to support you. Could you tell me more about what's on your mind?"

const responsePromptFormat = `%s

Based on the following context, generate a therapeutic response:
Message: %s
Analysis: %s
Memory: %s
Goals: %s

Response requirements:
1. Be empathetic and supportive
2. Address emotional needs
3. Use therapeutic techniques
4. Stay professional
5. Ensure safety and grounding`

// generateResponse produces the therapeutic reply. An empty extraction
// counts as a failure; any failure yields FallbackReply.
func (p *Pipeline) generateResponse(ctx context.Context, event MessageEvent, analysis AnalysisResult, mem Memory) string {
	prompt := fmt.Sprintf(responsePromptFormat,
		event.SystemPrompt,
		event.Message,
		jsonutils.ToJSON(analysis),
		jsonutils.ToJSON(mem),
		jsonutils.ToJSON(goalsOrEmpty(event.Goals)),
	)

	result, err := p.gen.GenerateContent(ctx, prompt)
	if err != nil {
		p.logger.Error("Error generating response",
			zap.Error(err),
			zap.String("message", event.Message),
		)
		return FallbackReply
	}

	responseText := llm.ExtractText(p.logger, "generate-response", result)
	p.logger.Info("Generated response", zap.String("response_text", responseText))

	if responseText == "" {
		p.logger.Error("Error generating response",
			zap.String("message", event.Message),
			zap.String("reason", "empty response"),
		)
		return FallbackReply
	}

	return responseText
}

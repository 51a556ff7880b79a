package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serenity/serenity/services/llm"
	"serenity/serenity/utils/jsonutils"
)

// ActivityRecommendation is one personalized activity suggestion.
type ActivityRecommendation struct {
	Activity        string   `json:"activity"`
	Reasoning       string   `json:"reasoning"`
	Benefits        []string `json:"benefits"`
	Difficulty      string   `json:"difficulty"`
	DurationMinutes int      `json:"durationMinutes"`
}

type recommendationSet struct {
	Recommendations []ActivityRecommendation `json:"recommendations"`
}

const recommendPromptFormat = `Based on the following user context, generate 3-5 personalized activity recommendations. Return ONLY a valid JSON object with no markdown formatting.
User Context: %s

Required JSON:
{
  "recommendations": [
    {
      "activity": "string",
      "reasoning": "string",
      "benefits": ["string"],
      "difficulty": "string",
      "durationMinutes": number
    }
  ]
}`

// RecommendActivities generates personalized activity recommendations from
// the user's mood and activity history and persists them. Errors propagate
// for dispatcher redelivery.
func (p *Pipeline) RecommendActivities(ctx context.Context, event MoodEvent) ([]ActivityRecommendation, error) {
	runner := NewRunner(uuid.NewString(), p.logger, nil)

	userContext, err := RunStep(ctx, runner, "get-user-context", func() (map[string]interface{}, error) {
		return map[string]interface{}{
			"recentMoods":         event.RecentMoods,
			"completedActivities": event.CompletedActivities,
			"preferences":         event.Preferences,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	recs, err := RunStep(ctx, runner, "generate-recommendations", func() ([]ActivityRecommendation, error) {
		result, err := p.gen.GenerateContent(ctx, fmt.Sprintf(recommendPromptFormat, jsonutils.ToJSON(userContext)))
		if err != nil {
			return nil, fmt.Errorf("recommendation generation failed: %w", err)
		}
		rawText := llm.ExtractText(p.logger, "recommendations", result)

		var parsed recommendationSet
		if err := jsonutils.UnmarshalObject(rawText, &parsed); err != nil {
			return nil, fmt.Errorf("recommendation parse failed: %w", err)
		}
		return parsed.Recommendations, nil
	})
	if err != nil {
		return nil, err
	}

	_, err = RunStep(ctx, runner, "store-recommendations", func() (struct{}, error) {
		if p.recommendationStore == nil {
			return struct{}{}, nil
		}
		if err := p.recommendationStore.SaveRecommendations(ctx, event.UserID, recs); err != nil {
			return struct{}{}, fmt.Errorf("storing recommendations failed: %w", err)
		}
		p.logger.Info("Activity recommendations stored successfully",
			zap.String("user_id", event.UserID),
		)
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	return recs, nil
}

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"serenity/serenity/utils/logging"
)

// GeminiClient implements Generator on top of the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{client: client, model: model}, nil
}

// GenerateContent runs a single non-streaming generation call.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string) (*Result, error) {
	defer logging.LogDuration(ctx, "gemini_generate_content")()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	return resultFromSDK(resp), nil
}

// resultFromSDK maps the SDK response onto the shape union consumed by
// ExtractText. Candidate parts are carried as output blocks so extraction
// still works if the aggregated text accessor comes back empty.
func resultFromSDK(resp *genai.GenerateContentResponse) *Result {
	result := &Result{
		Response: &Response{Text: resp.Text()},
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		block := OutputBlock{}
		for _, part := range cand.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			block.Content = append(block.Content, Fragment{Text: part.Text})
		}
		if len(block.Content) > 0 {
			result.Output = append(result.Output, block)
		}
	}

	return result
}

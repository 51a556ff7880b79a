package llm

import "context"

// Generator is the single operation the pipeline needs from a generative
// model provider. Results are consumed only through ExtractText, so the
// pipeline stays agnostic to the concrete model and SDK version.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (*Result, error)
}

// Result is the provider-agnostic shape of one generation call. Response
// shapes have varied across SDK versions, so the known variants are carried
// side by side and probed in fixed precedence order by ExtractText.
type Result struct {
	// ResponseFunc lazily resolves the response (accessor/deferred style of
	// older clients). Takes precedence over everything else when set.
	ResponseFunc func() (*Response, error) `json:"-"`

	// Response is an already-resolved response.
	Response *Response `json:"response,omitempty"`

	// Output is the block-array shape some SDK versions return.
	Output []OutputBlock `json:"output,omitempty"`

	// Raw holds anything unrecognized; stringified as a last resort.
	Raw interface{} `json:"raw,omitempty"`
}

// Response carries the text of a resolved generation response.
type Response struct {
	// TextFunc is the accessor-style variant; checked before Text.
	TextFunc func() (string, error) `json:"-"`

	Text string `json:"text,omitempty"`
}

// OutputBlock is one element of the output-array response shape.
type OutputBlock struct {
	Content []Fragment `json:"content,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// Fragment is a nested text fragment inside an output block.
type Fragment struct {
	Text string `json:"text"`
}

// TextResult wraps plain text in a Result. Handy for providers (and tests)
// that already hand back a final string.
func TextResult(text string) *Result {
	return &Result{Response: &Response{Text: text}}
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExtractText produces the best-effort plain-text content of a generation
// result. The known response shapes are probed in fixed precedence order:
//
//  1. a lazy response accessor, resolved and recursed into
//  2. a response with a text accessor
//  3. a response with plain text
//  4. an output-block array, fragments joined by spaces and blocks by newlines
//  5. a string serialization of the whole result
//
// It never panics outward: any internal failure is logged under the
// caller-supplied label and an empty string is returned.
func ExtractText(logger *zap.Logger, label string, result *Result) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error extracting text from gen result",
				zap.Any("recover", r),
				zap.String("label", label),
			)
			text = ""
		}
	}()

	if result == nil {
		return ""
	}

	if result.ResponseFunc != nil {
		resp, err := result.ResponseFunc()
		if err != nil {
			logger.Error("Error extracting text from gen result",
				zap.Error(err),
				zap.String("label", label),
			)
			return ""
		}
		return ExtractText(logger, label, &Result{Response: resp})
	}

	if result.Response != nil {
		if result.Response.TextFunc != nil {
			s, err := result.Response.TextFunc()
			if err != nil {
				logger.Error("Error extracting text from gen result",
					zap.Error(err),
					zap.String("label", label),
				)
				return ""
			}
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(result.Response.Text)
	}

	if len(result.Output) > 0 {
		blocks := make([]string, 0, len(result.Output))
		for _, block := range result.Output {
			if len(block.Content) > 0 {
				parts := make([]string, 0, len(block.Content))
				for _, frag := range block.Content {
					parts = append(parts, frag.Text)
				}
				blocks = append(blocks, strings.Join(parts, " "))
				continue
			}
			blocks = append(blocks, block.Text)
		}
		if collected := strings.TrimSpace(strings.Join(blocks, "\n")); collected != "" {
			return collected
		}
	}

	return strings.TrimSpace(stringify(result))
}

func stringify(result *Result) string {
	v := result.Raw
	if v == nil {
		v = result
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

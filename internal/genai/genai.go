// Package genai talks to the external text-generation service. The service
// is opaque: given a prompt it returns generated text or fails. No retries.
package genai

import (
	"context"
	"strings"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CleanSQL strips markdown code-fence artifacts the model sometimes wraps
// around its output, then trims whitespace. No other sanitization happens;
// invalid SQL surfaces at execution time.
func CleanSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

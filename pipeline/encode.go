package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	pollyerrors "github.com/AaronL1011/polly-ai/errors"
)

// decodeJSON tries to unmarshal the raw model output into T after stripping fences.
func decodeJSON[T any](raw string) (*T, error) {
	clean := sanitizeJSON(raw)
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", pollyerrors.ErrParse, err)
	}
	return &out, nil
}

// decodeJSONMap is decodeJSON for untyped objects.
func decodeJSONMap(raw string) (map[string]any, error) {
	clean := sanitizeJSON(raw)
	var out map[string]any
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", pollyerrors.ErrParse, err)
	}
	return out, nil
}

func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}

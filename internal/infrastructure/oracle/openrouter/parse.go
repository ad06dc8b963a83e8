package openrouter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeStrict extracts the JSON object from a model response (first '{' to
// last '}') and unmarshals it. Anything without a complete object is
// rejected outright.
func decodeStrict(response string, v any) error {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in response: %.100s", response)
	}

	if err := json.Unmarshal([]byte(response[start:end+1]), v); err != nil {
		return fmt.Errorf("malformed JSON in response: %w", err)
	}
	return nil
}

package llm

import (
	"encoding/json"
	"strings"
)

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// ParseJSONObject decodes a model answer into an object and checks the required keys exist.
func ParseJSONObject(raw string, required ...string) (map[string]any, error) {
	text := StripFences(raw)

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, NewErrParse("response is not a JSON object: %v", err)
	}
	if obj == nil {
		return nil, NewErrParse("response is not a JSON object")
	}

	for _, k := range required {
		if _, ok := obj[k]; !ok {
			return nil, NewErrParse("response is missing required key %q", k)
		}
	}
	return obj, nil
}

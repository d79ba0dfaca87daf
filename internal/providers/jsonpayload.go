package providers

import (
	"fmt"
	"strings"
)

// ExtractJSONPayload isolates the JSON document inside a model
// response. Models wrap output in markdown fences or prose; the first
// array (or, failing that, object) span wins.
func ExtractJSONPayload(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("provider returned empty response")
	}

	if strings.HasPrefix(raw, "```") {
		stripped := strings.Trim(raw, "`")
		lines := strings.Split(stripped, "\n")
		if len(lines) > 0 && strings.HasPrefix(strings.ToLower(lines[0]), "json") {
			lines = lines[1:]
		}
		raw = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start != -1 && end >= start {
		return raw[start : end+1], nil
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end >= start {
		return raw[start : end+1], nil
	}
	return raw, nil
}

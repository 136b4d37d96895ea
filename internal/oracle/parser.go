package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lexward/wordflow/internal/common"
)

// ParseClassification parses the oracle's line-oriented answer into a
// Classification. The parser is tolerant: key matching is case-insensitive,
// unknown lines are skipped, and a JSON object answer is accepted as a
// fallback for models that ignore the format instructions.
func ParseClassification(content string) (Classification, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Classification{}, fmt.Errorf("%w: empty oracle response", common.ErrClassificationFailed)
	}

	if strings.HasPrefix(content, "{") {
		if c, ok := parseJSONClassification(content); ok {
			return c, nil
		}
	}

	var result Classification
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "language":
			result.Language = value
		case "translation":
			result.Translation = value
		case "category":
			result.Category = value
		}
	}

	if result.Language == "" && result.Translation == "" && result.Category == "" {
		return Classification{}, fmt.Errorf("%w: unparseable oracle response: %q", common.ErrClassificationFailed, content)
	}

	return result, nil
}

func parseJSONClassification(content string) (Classification, bool) {
	var payload struct {
		Language    string `json:"language"`
		Translation string `json:"translation"`
		Category    string `json:"category"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Classification{}, false
	}
	if payload.Language == "" && payload.Translation == "" && payload.Category == "" {
		return Classification{}, false
	}
	return Classification{
		Language:    payload.Language,
		Translation: payload.Translation,
		Category:    payload.Category,
	}, true
}

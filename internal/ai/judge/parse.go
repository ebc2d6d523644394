package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/ai"
	"github.com/mitchellh/mapstructure"
)

const (
	minScore = 0
	maxScore = 100
)

type document struct {
	Score          float64  `json:"score"`
	Summary        string   `json:"summary"`
	MatchingSkills []string `json:"matching_skills"`
	MissingSkills  []string `json:"missing_skills"`
}

// parseAssessment turns raw model output into an Assessment. Anything that
// does not validate against the schema is rejected as a whole.
func parseAssessment(raw string) (ai.Assessment, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return ai.Assessment{}, fmt.Errorf("response contains no json document")
	}

	if err := validateDocument(cleaned); err != nil {
		return ai.Assessment{}, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return ai.Assessment{}, fmt.Errorf("decode response json: %w", err)
	}

	var doc document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &doc,
	})
	if err != nil {
		return ai.Assessment{}, fmt.Errorf("create assessment decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return ai.Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}

	return ai.Assessment{
		Score:          clampScore(doc.Score),
		Summary:        strings.TrimSpace(doc.Summary),
		MatchingSkills: cleanSkills(doc.MatchingSkills),
		MissingSkills:  cleanSkills(doc.MissingSkills),
	}, nil
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func clampScore(score float64) int {
	switch {
	case score < minScore:
		return minScore
	case score > maxScore:
		return maxScore
	default:
		return int(score)
	}
}

func cleanSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

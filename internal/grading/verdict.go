package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const verdictSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["output", "feedback", "isSuccess"],
  "properties": {
    "output":    {"type": "string"},
    "feedback":  {"type": "string"},
    "isSuccess": {"type": "boolean"}
  }
}`

var verdictSchema = mustSchema(verdictSchemaJSON)

type verdict struct {
	Output    string `json:"output"`
	Feedback  string `json:"feedback"`
	IsSuccess bool   `json:"isSuccess"`
}

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("grading: invalid verdict schema: %v", err))
	}
	return s
}

// parseVerdict extracts the JSON object from a model reply. Markdown code
// fences and text around the object are tolerated.
func parseVerdict(content string) (verdict, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return verdict{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedVerdict)
	}

	result, err := verdictSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return verdict{}, fmt.Errorf("%w: %s", ErrMalformedVerdict, strings.Join(msgs, "; "))
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	return v, nil
}

func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

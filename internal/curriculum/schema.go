package curriculum

import "github.com/xeipuuv/gojsonschema"

const moduleSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "position", "title", "challenge", "unlock_code", "questions"],
  "properties": {
    "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9_-]*$"},
    "position": {"type": "integer", "minimum": 1},
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "theory": {"type": "string"},
    "example": {"type": "string"},
    "challenge": {"type": "string", "minLength": 1},
    "unlock_code": {"type": "string", "pattern": "^[A-Z0-9][A-Z0-9-]*$"},
    "estimated_minutes": {"type": "integer", "minimum": 1},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "prompt", "options", "correct_index"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "prompt": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 2,
            "items": {"type": "string"}
          },
          "correct_index": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

var moduleSchema = mustSchema(moduleSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("curriculum: invalid module schema: " + err.Error())
	}
	return s
}

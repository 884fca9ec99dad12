package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const courseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "chapters", "final_exam"],
  "definitions": {
    "assessment": {
      "type": "object",
      "required": ["question_ids", "passing_score"],
      "properties": {
        "question_ids": {"type": "array", "items": {"type": "string"}},
        "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
        "cooldown_hours": {"type": "integer", "minimum": 0},
        "time_limit_minutes": {"type": "integer", "minimum": 0}
      }
    },
    "quiz": {
      "type": "object",
      "required": ["question_ids", "passing_score"],
      "properties": {
        "question_ids": {"type": "array", "items": {"type": "string"}},
        "passing_score": {"type": "integer", "minimum": 0, "maximum": 100},
        "unlimited_retries": {"type": "boolean"}
      }
    }
  },
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "title": {"type": "string"},
    "final_exam": {"$ref": "#/definitions/assessment"},
    "chapters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "number", "lessons", "chapter_test"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "number": {"type": "integer", "minimum": 1},
          "chapter_test": {"$ref": "#/definitions/assessment"},
          "lessons": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "number", "quiz"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "number": {"type": "integer", "minimum": 1},
                "quiz": {"$ref": "#/definitions/quiz"}
              }
            }
          }
        }
      }
    },
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text", "options", "correct_answer", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "text": {"type": "string"},
          "options": {"type": "array", "items": {"type": "string"}, "minItems": 4, "maxItems": 4},
          "correct_answer": {"type": "string"},
          "type": {"enum": ["quiz", "test", "exam"]}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(courseSchema))
	})
	return schema, schemaErr
}

// ValidateDocument checks a decoded course document against the course schema.
func ValidateDocument(doc map[string]any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling course schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating course: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
}

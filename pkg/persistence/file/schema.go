package file

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural contract for a canvas document. Fields
// this engine does not own (sides, future editor extensions) are allowed
// through so documents round-trip without loss.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "x", "y", "width", "height"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["text", "file", "group"]},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "width": {"type": "number"},
          "height": {"type": "number"},
          "color": {"type": "string"},
          "text": {"type": "string"},
          "file": {"type": "string"},
          "label": {"type": "string"}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "fromNode", "toNode"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "fromNode": {"type": "string", "minLength": 1},
          "toNode": {"type": "string", "minLength": 1},
          "fromSide": {"type": "string"},
          "toSide": {"type": "string"},
          "label": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateDocument checks raw bytes against the canvas schema.
func validateDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		first := result.Errors()[0]

		return fmt.Errorf("document violates canvas schema: %s", first.String())
	}

	return nil
}

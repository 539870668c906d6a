package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const transcriptSchemaURL = "transcript.schema.json"

const transcriptSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "authorId": {"type": ["string", "null"]},
      "content": {"type": ["string", "null"]},
      "attachments": {"type": ["array", "null"]},
      "embeds": {"type": ["array", "null"]}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(transcriptSchemaURL, strings.NewReader(transcriptSchema)); err != nil {
			schemaErr = fmt.Errorf("add transcript schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(transcriptSchemaURL)
	})
	return schema, schemaErr
}

// validate checks that data is a well-formed transcript document.
func validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	return sch.Validate(instance)
}

package config

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var compileSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
})

// Schema returns the JSON schema configuration documents must satisfy.
func Schema() string { return schemaJSON }

// validateSchema checks a merged configuration map against the schema.
func validateSchema(doc map[string]any) ([]Problem, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("config: schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("config: schema validation: %w", err)
	}

	var problems []Problem
	for _, e := range result.Errors() {
		path := e.Field()
		if path == "(root)" {
			path = ""
		}
		problems = append(problems, Problem{Path: path, Message: e.Description()})
	}
	return problems, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package seed

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id embedded in the generated schema.
const SchemaID = "https://driftwood-mud.dev/schemas/seed.schema.json"

var (
	schemaOnce sync.Once
	schemaed   *jschema.Schema
	schemaErr  error
)

// GenerateSchema generates the seed JSON Schema from the Document struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Document{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Driftwood World Seed"
	schema.Description = "Schema for seed.yaml world bootstrap files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GEN_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema validates YAML data against the seed JSON Schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code("SEED_INVALID").Errorf("seed data is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code("SEED_INVALID").With("operation", "parse yaml").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(convertToJSONTypes(yamlData)); err != nil {
		return oops.Code("SEED_INVALID").With("operation", "schema validation").Wrap(err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaed, schemaErr = compileSchema()
	})
	return schemaed, schemaErr
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.Code("SCHEMA_GEN_FAILED").With("operation", "parse schema json").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("seed.schema.json", schemaData); err != nil {
		return nil, oops.Code("SCHEMA_GEN_FAILED").With("operation", "add schema resource").Wrap(err)
	}

	sch, err := c.Compile("seed.schema.json")
	if err != nil {
		return nil, oops.Code("SCHEMA_GEN_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
}

// convertToJSONTypes normalizes YAML-parsed data for the validator.
// yaml.v3 already yields map[string]any, but nested values need the
// same treatment recursively.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			result[k] = convertToJSONTypes(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v := range val {
			result[i] = convertToJSONTypes(v)
		}
		return result
	default:
		return val
	}
}

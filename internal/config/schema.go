package config

import (
	_ "embed" // Required for //go:embed directive
	"fmt"
	"sync"

	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed streamhook_schema_v1.0.0.json
var schemaV1Bytes []byte

var (
	schemaV1   *gojsonschema.Schema
	schemaOnce sync.Once
	schemaErr  error
)

// loadSchema compiles the embedded schema once.
func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		if len(schemaV1Bytes) == 0 {
			schemaErr = shErrors.NewConfigError("embedded schema 'streamhook_schema_v1.0.0.json' is empty", nil)
			return
		}
		schemaV1, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaV1Bytes))
		if schemaErr != nil {
			schemaErr = shErrors.NewConfigError("failed to compile embedded schema 'streamhook_schema_v1.0.0.json'", schemaErr)
		}
	})
	return schemaV1, schemaErr
}

// ValidateWithSchema checks a YAML (or JSON) document against the embedded
// v1 schema. Each violation becomes one entry of the returned
// ValidationError's Reasons.
func ValidateWithSchema(documentYAML []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	// gojsonschema walks generic Go values, so decode loosely first.
	var data interface{}
	if err := yaml.Unmarshal(documentYAML, &data); err != nil {
		return shErrors.NewConfigError("failed to parse configuration for schema validation", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return shErrors.NewConfigError("schema validation process failed", err)
	}
	if result.Valid() {
		return nil
	}

	reasons := make([]string, 0, len(result.Errors()))
	errMsg := "configuration failed JSON schema validation:"
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "(root)" || field == "" {
			field = desc.Context().String()
		}
		reason := fmt.Sprintf("field '%s': %s", field, desc.Description())
		reasons = append(reasons, reason)
		errMsg += "\n  - " + reason
	}
	vErr := shErrors.NewValidationError(errMsg, nil)
	vErr.Reasons = reasons
	return vErr
}

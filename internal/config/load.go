package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the major schema version this build reads.
const SupportedSchemaVersionConstraint = "v1"

// Load parses a configuration document. YAML and JSON input are both
// accepted. The content is checked against the embedded JSON schema, decoded
// strictly, gated on schemaVersion, given defaults and finally validated
// logically. filePathHint is only used in messages.
func Load(content []byte, filePathHint string) (*Document, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, shErrors.NewConfigError("configuration content cannot be empty", nil)
	}

	// Step 1: structure and types.
	if err := ValidateWithSchema(content); err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("configuration '%s' failed schema validation", filePathHint), err)
	}

	// Step 2: strict decode so typos in keys are reported.
	var doc Document
	if err := yamlUnmarshalStrict(content, &doc); err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("failed to parse configuration '%s'", filePathHint), err)
	}
	doc.FilePath = filePathHint

	// Step 3: schema version gate.
	if err := checkSchemaVersion(doc.SchemaVersion, filePathHint); err != nil {
		return nil, err
	}

	// Step 4: defaults for fields hand-written files tend to omit.
	doc.normalize()

	// Step 5: logical validation.
	if validationErrs := ValidateDocument(&doc); len(validationErrs) > 0 {
		return nil, shErrors.NewConfigError(
			fmt.Sprintf("configuration '%s' is invalid", filePathHint),
			combineValidationErrors(filePathHint, validationErrs),
		)
	}

	return &doc, nil
}

// LoadFile reads and loads the document at filePath.
func LoadFile(filePath string) (*Document, error) {
	if filePath == "" {
		return nil, shErrors.NewConfigError("configuration file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, shErrors.NewConfigError(fmt.Sprintf("failed to read configuration file '%s'", absPath), err)
	}
	return Load(content, absPath)
}

// Marshal renders the document as YAML with every field written out.
func Marshal(doc *Document) ([]byte, error) {
	out := doc.Clone()
	if out.SchemaVersion == "" {
		out.SchemaVersion = CurrentSchemaVersion
	}
	out.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, shErrors.NewConfigError("failed to encode configuration", err)
	}
	if err := enc.Close(); err != nil {
		return nil, shErrors.NewConfigError("failed to encode configuration", err)
	}
	return buf.Bytes(), nil
}

func checkSchemaVersion(version, filePathHint string) error {
	if version == "" {
		return shErrors.NewValidationError(fmt.Sprintf("configuration '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return shErrors.NewValidationError(fmt.Sprintf("configuration '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaVersionConstraint {
		return shErrors.NewValidationError(
			fmt.Sprintf("configuration '%s' schemaVersion '%s' is not compatible with requirement '%s'",
				filePathHint, version, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return nil
}

// combineValidationErrors folds several findings into one ValidationError
// whose Reasons carry each finding.
func combineValidationErrors(filePathHint string, errs []error) *shErrors.ValidationError {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		if vErr, ok := err.(*shErrors.ValidationError); ok {
			messages = append(messages, vErr.Message)
			continue
		}
		messages = append(messages, err.Error())
	}
	combined := shErrors.NewValidationError(
		fmt.Sprintf("configuration '%s' has %d validation error(s):\n- %s",
			filePathHint, len(messages), strings.Join(messages, "\n- ")),
		nil,
	)
	combined.Reasons = messages
	return combined
}

// yamlUnmarshalStrict decodes in into out, rejecting unknown keys.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}

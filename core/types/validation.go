package types

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
)

// Validator validates values against JSON Schema documents.
type Validator struct {
	config *ValidationConfig
	cache  *validatorCache
}

// NewValidator creates a new validator with given config
func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}

	var cache *validatorCache
	if config.EnableCache && config.MaxCacheSize > 0 {
		cache = newValidatorCache(config.MaxCacheSize)
	}

	return &Validator{config: config, cache: cache}
}

var defaultValidator = NewValidator(nil)

// Validate checks value against schema with the default validator.
func Validate(schema JSONSchema, value any) error {
	return defaultValidator.Validate(schema, value)
}

// Validate converts value to its JSON form and checks it against schema.
func (v *Validator) Validate(schema JSONSchema, value any) error {
	validator, err := v.getValidator(schema)
	if err != nil {
		return err
	}

	jsonValue, err := ToJSONValue(value)
	if err != nil {
		return err
	}
	if err := validator.Validate(jsonValue); err != nil {
		return convertValidationError(err)
	}
	return nil
}

// getValidator gets cached validator or compiles new one
func (v *Validator) getValidator(schema JSONSchema) (*jsonschema.Schema, error) {
	schemaHash, schemaJSON, err := hashSchema(schema)
	if err != nil {
		return nil, fmt.Errorf("schema marshal failed: %w", err)
	}

	if v.cache != nil {
		if validator, ok := v.cache.get(schemaHash); ok {
			return validator, nil
		}
	}

	if len(schemaJSON) > v.config.MaxSchemaSize {
		return nil, fmt.Errorf("schema too large: %d bytes (max: %d)", len(schemaJSON), v.config.MaxSchemaSize)
	}
	if depth := measureDepth(map[string]any(schema), 0); depth > v.config.MaxSchemaDepth {
		return nil, fmt.Errorf("schema too deep: %d levels (max: %d)", depth, v.config.MaxSchemaDepth)
	}

	validator, err := v.compileSchema(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("validator compilation failed: %w", err)
	}

	if v.cache != nil {
		v.cache.put(schemaHash, validator)
	}
	return validator, nil
}

// compileSchema compiles a JSON Schema document. Schemas are self-contained:
// every $ref outside the document is refused.
func (v *Validator) compileSchema(schemaJSON []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = v.config.AssertFormat

	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	for name, validator := range formatValidators {
		compiler.Formats[name] = validator
	}

	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external $ref not allowed: %s", url)
	}

	url := "schema://main.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// formatValidators are the evml formats. Non-string values pass; type
// checks are the job of the "type" keyword.
var formatValidators = map[string]func(interface{}) bool{
	FormatAddress: func(v interface{}) bool {
		s, ok := v.(string)
		return !ok || (common.IsHexAddress(s) && strings.HasPrefix(strings.ToLower(s), "0x"))
	},
	FormatBytes: func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		_, err := hexutil.Decode(s)
		return err == nil
	},
	FormatSemver: func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		if !strings.HasPrefix(s, "v") {
			s = "v" + s
		}
		return semver.IsValid(s)
	},
	FormatDuration: func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		_, err := ParseDuration(s)
		return err == nil
	},
}

// ValidationError is a schema violation at one location of the value.
type ValidationError struct {
	Path    string // JSON pointer into the value, "" for the root
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("at %s: %s", e.Path, e.Message)
}

// convertValidationError reduces a jsonschema error tree to its first leaf.
func convertValidationError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ValidationError{Path: ve.InstanceLocation, Message: ve.Message}
}

// measureDepth measures the nesting depth of a schema to bound the cost of
// compiling it.
func measureDepth(obj any, currentDepth int) int {
	m, ok := obj.(map[string]any)
	if !ok {
		if s, isSchema := obj.(JSONSchema); isSchema {
			m = map[string]any(s)
		} else {
			return currentDepth
		}
	}

	maxDepth := currentDepth
	visit := func(child any) {
		if d := measureDepth(child, currentDepth+1); d > maxDepth {
			maxDepth = d
		}
	}

	if props, ok := m["properties"].(map[string]any); ok {
		for _, fieldSchema := range props {
			visit(fieldSchema)
		}
	}
	if items, ok := m["items"]; ok {
		visit(items)
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		if arr, ok := m[key].([]any); ok {
			for _, schema := range arr {
				visit(schema)
			}
		}
	}
	return maxDepth
}

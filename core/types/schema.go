// Package types validates evml values against JSON Schema documents.
//
// Command options and the CLI configuration file declare their accepted
// values as JSON Schema (Draft 2020-12). Script values are converted to their
// JSON form with ToJSONValue before validation, so a *big.Int is checked as a
// number and an address as a string.
package types

// JSONSchema represents a JSON Schema Draft 2020-12 document.
type JSONSchema map[string]any

// Formats understood in addition to the standard JSON Schema ones.
const (
	FormatAddress  = "address"  // 0x-prefixed 20-byte hex
	FormatBytes    = "bytes"    // 0x-prefixed even-length hex
	FormatSemver   = "semver"   // semantic version, "v" prefix optional
	FormatDuration = "duration" // evml time literal: 30s, 2d, 3mo
)

// String returns a string schema, optionally with a format.
func String(format string) JSONSchema {
	s := JSONSchema{"type": "string"}
	if format != "" {
		s["format"] = format
	}
	return s
}

// Address returns the schema of an address value.
func Address() JSONSchema { return String(FormatAddress) }

// Uint returns the schema of a non-negative integer.
func Uint() JSONSchema {
	return JSONSchema{"type": "integer", "minimum": 0}
}

// Bool returns the schema of a boolean.
func Bool() JSONSchema {
	return JSONSchema{"type": "boolean"}
}

// Enum returns a string schema restricted to values.
func Enum(values ...string) JSONSchema {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return JSONSchema{"type": "string", "enum": vals}
}

// Array returns the schema of an array whose items match item.
func Array(item JSONSchema) JSONSchema {
	return JSONSchema{"type": "array", "items": map[string]any(item)}
}

// Object returns a closed object schema.
func Object(props map[string]JSONSchema, required ...string) JSONSchema {
	p := make(map[string]any, len(props))
	for k, v := range props {
		p[k] = map[string]any(v)
	}
	s := JSONSchema{"type": "object", "properties": p, "additionalProperties": false}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

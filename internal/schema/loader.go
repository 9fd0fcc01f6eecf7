// Package schema loads a hierarchical signal schema (VSS-style JSON or YAML)
// and enumerates its leaf descriptors.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// #region errors
// LoadError reports a schema source that could not be read or is not a nested mapping.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load schema %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var errNotMapping = errors.New("root is not a mapping")

// #endregion errors

// #region schema
// Schema is a sanitized, read-only schema tree.
type Schema struct {
	root   map[string]any
	source string
}

// Source names where the schema was loaded from.
func (s *Schema) Source() string { return s.source }

// #endregion schema

// #region load
// LoadFile reads a schema file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	default:
		return Parse(data, path)
	}
}

// Parse decodes a JSON schema. Numbers are kept as json.Number so allowed
// literals keep their integer/float distinction.
func Parse(data []byte, source string) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &LoadError{Source: source, Err: errors.New("trailing data after schema object")}
	}
	return fromRaw(raw, source)
}

// ParseYAML decodes a YAML schema.
func ParseYAML(data []byte, source string) (*Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return fromRaw(normalizeYAML(raw), source)
}

// FromMap builds a schema from an in-memory tree. The input is deep-copied
// before annotation keys are stripped.
func FromMap(m map[string]any) *Schema {
	return &Schema{root: sanitize(m, false).(map[string]any), source: "<memory>"}
}

func fromRaw(raw any, source string) (*Schema, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &LoadError{Source: source, Err: errNotMapping}
	}
	return &Schema{root: sanitize(m, false).(map[string]any), source: source}, nil
}

// #endregion load

// #region sanitize
// sanitize copies node, dropping annotation keys at every depth. An annotation
// key holding a mapping is a subtree and is kept, as are keys directly under a
// children mapping, which are child names.
func sanitize(node any, childNames bool) any {
	switch t := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			if _, subtree := v.(map[string]any); !subtree && !childNames && isAnnotation(k) {
				continue
			}
			out[k] = sanitize(v, k == ChildrenKey && !childNames)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = sanitize(v, false)
		}
		return out
	default:
		return t
	}
}

func isAnnotation(key string) bool {
	for _, k := range AnnotationKeys {
		if k == key {
			return true
		}
	}
	return false
}

// normalizeYAML turns map[any]any nodes (non-string keys) into map[string]any.
func normalizeYAML(node any) any {
	switch t := node.(type) {
	case map[string]any:
		for k, v := range t {
			t[k] = normalizeYAML(v)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return out
	case []any:
		for i, v := range t {
			t[i] = normalizeYAML(v)
		}
		return t
	default:
		return t
	}
}

// #endregion sanitize

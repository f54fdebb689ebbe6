package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownComponentType is returned for component types outside the known set.
var ErrUnknownComponentType = errors.New("unknown component type")

// InvalidConfigError reports a component config that fails its type's schema,
// naming the offending field so the authoring caller can correct it.
type InvalidConfigError struct {
	ComponentType string
	Field         string
	Reason        string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config for component %q: field %q %s", e.ComponentType, e.Field, e.Reason)
}

// fieldKind is the accepted value category for a required config field.
type fieldKind int

const (
	kindString fieldKind = iota // non-empty string
	kindURL                     // non-empty string shaped like a URL or path
	kindList                    // non-empty list
)

type fieldSpec struct {
	name string
	kind fieldKind
}

// componentSchemas is the closed set of component types and the minimal shape
// each config must satisfy. Optional keys are not declared here; they pass
// through normalization untouched (or are trimmed in strict mode).
var componentSchemas = map[string][]fieldSpec{
	"hero": {
		{name: "title", kind: kindString},
		{name: "image", kind: kindURL},
	},
	"gallery": {
		{name: "images", kind: kindList},
	},
	"map": {
		{name: "address", kind: kindString},
	},
	"form": {
		{name: "fields", kind: kindList},
	},
	"text": {
		{name: "content", kind: kindString},
	},
	"cta": {
		{name: "label", kind: kindString},
		{name: "href", kind: kindURL},
	},
}

// Registry validates component configs against the known type set.
// It holds no storage handle and has no side effects.
type Registry struct {
	strict bool
}

// New returns a registry. Strict registries drop unrecognized config keys
// during normalization; lax registries keep them so custom fields survive
// round trips through older clients.
func New(strict bool) *Registry {
	return &Registry{strict: strict}
}

// KnownTypes returns the component type identifiers this registry accepts.
func KnownTypes() []string {
	types := make([]string, 0, len(componentSchemas))
	for t := range componentSchemas {
		types = append(types, t)
	}
	return types
}

// Validate checks componentType and config and returns a normalized copy of
// the config. The input map is never mutated.
func (r *Registry) Validate(componentType string, config map[string]interface{}) (map[string]interface{}, error) {
	specs, ok := componentSchemas[componentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponentType, componentType)
	}

	if config == nil {
		config = map[string]interface{}{}
	}

	for _, spec := range specs {
		value, present := config[spec.name]
		if !present {
			return nil, &InvalidConfigError{ComponentType: componentType, Field: spec.name, Reason: "is required"}
		}
		if err := checkKind(componentType, spec, value); err != nil {
			return nil, err
		}
	}

	normalized := make(map[string]interface{}, len(config))
	if r.strict {
		for _, spec := range specs {
			normalized[spec.name] = config[spec.name]
		}
		return normalized, nil
	}
	for k, v := range config {
		normalized[k] = v
	}
	return normalized, nil
}

func checkKind(componentType string, spec fieldSpec, value interface{}) error {
	invalid := func(reason string) error {
		return &InvalidConfigError{ComponentType: componentType, Field: spec.name, Reason: reason}
	}

	switch spec.kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			return invalid("must be a string")
		}
		if strings.TrimSpace(s) == "" {
			return invalid("must not be empty")
		}
	case kindURL:
		s, ok := value.(string)
		if !ok {
			return invalid("must be a URL string")
		}
		if !looksLikeURL(s) {
			return invalid("must be an absolute URL or a path starting with /")
		}
	case kindList:
		items, ok := value.([]interface{})
		if !ok {
			return invalid("must be a list")
		}
		if len(items) == 0 {
			return invalid("must not be empty")
		}
	}
	return nil
}

func looksLikeURL(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "/")
}

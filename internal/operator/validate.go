package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/seqpref/internal/schema"
)

// Validation error codes (E200-E299).
const (
	ErrCodeRange       = "E201" // range must be >= 1
	ErrCodeSlide       = "E202" // slide must be >= 1
	ErrCodeRuleCount   = "E203" // rule count must be even and >= 2
	ErrCodeLevels      = "E204" // level count must be >= 1
	ErrCodeTopK        = "E205" // k must be >= 1
	ErrCodeLength      = "E206" // min/max length must be >= 1
	ErrCodeDomain      = "E207" // domain must allow two adjacent values
	ErrCodeAttributes  = "E208" // not enough attributes
	ErrCodeIdentifiers = "E209" // only single-attribute identifiers
	ErrCodeIndifferent = "E210" // indifferent > attributes - 2
	ErrCodeUnknownKind = "E211" // operator not in the closed set
)

// Preference rules read A2..A5, so their streams need at least A5.
const minPreferenceLayout = schema.AllPreviousIndex

// ErrInvalidConfig is matched by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// FieldError is one rejected configuration value.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ConfigError collects every rejected value of a specification.
type ConfigError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Has reports whether a field error with the given code was collected.
func (e *ConfigError) Has(code string) bool {
	for _, f := range e.Fields {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Validate checks a specification against a schema before compilation.
// All problems are reported at once; values are never clamped.
//
// A schema whose indifferent attributes leave no comparable attribute is
// accepted: ceteris paribus then holds vacuously, and choosing such a
// layout is the caller's responsibility.
func Validate(spec Spec, s schema.Schema) error {
	v := &validator{}

	switch spec.Kind {
	case Seq, Conseq, BestSeq, TopKSeq, MinSeq, MaxSeq:
	default:
		v.add("operator", ErrCodeUnknownKind, "unknown operator %s", spec.Kind)
	}

	if spec.Window.Range < 1 {
		v.add("window.range", ErrCodeRange, "range must be >= 1, got %d", spec.Window.Range)
	}
	if spec.Window.Slide < 1 {
		v.add("window.slide", ErrCodeSlide, "slide must be >= 1, got %d", spec.Window.Slide)
	}

	minAttributes := 1
	if spec.Kind.UsesPreferences() {
		minAttributes = minPreferenceLayout
		v.validateRules(spec)
	}
	switch spec.Kind {
	case TopKSeq:
		if spec.K < 1 {
			v.add("k", ErrCodeTopK, "k must be >= 1, got %d", spec.K)
		}
	case MinSeq:
		if spec.MinLength < 1 {
			v.add("min_length", ErrCodeLength, "minimum length must be >= 1, got %d", spec.MinLength)
		}
	case MaxSeq:
		if spec.MaxLength < 1 {
			v.add("max_length", ErrCodeLength, "maximum length must be >= 1, got %d", spec.MaxLength)
		}
	}

	if s.Attributes < minAttributes {
		v.add("schema.attributes", ErrCodeAttributes,
			"%s needs at least %d attributes, got %d", spec.Kind, minAttributes, s.Attributes)
	}
	if s.Identifiers != 1 {
		v.add("schema.identifiers", ErrCodeIdentifiers,
			"only single-attribute identifiers are supported, got %d", s.Identifiers)
	}
	// A1 and A2 are never indifferent. Layouts narrower than A2 have no
	// room for indifferent attributes at all.
	maxIndifferent := max(0, s.Attributes-2)
	if s.Indifferent < 0 || s.Indifferent > maxIndifferent {
		v.add("schema.indifferent", ErrCodeIndifferent,
			"indifferent count must be between 0 and %d, got %d", maxIndifferent, s.Indifferent)
	}

	if len(v.fields) == 0 {
		return nil
	}
	return &ConfigError{Fields: v.fields}
}

func (v *validator) validateRules(spec Spec) {
	r := spec.Rules
	if r.Count < 2 || r.Count%2 != 0 {
		v.add("rules.count", ErrCodeRuleCount, "rule count must be even and >= 2, got %d", r.Count)
	}
	if r.Levels < 1 {
		v.add("rules.levels", ErrCodeLevels, "level count must be >= 1, got %d", r.Levels)
	}
	if r.DomainMax < 2 {
		v.add("rules.domain_max", ErrCodeDomain, "domain must be >= 2, got %d", r.DomainMax)
	}
}

type validator struct {
	fields []FieldError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.fields = append(v.fields, FieldError{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

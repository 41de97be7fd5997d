package form

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	dErrors "ysvs/pkg/domain-errors"
)

var (
	// RFC-shaped, not a full RFC 5322 parser. Good enough for form input.
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// Loose international phone pattern: optional +, digits with common separators.
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s\-().]{5,19}$`)
)

// Accepted date layouts, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Validate checks submitted field values against the schema.
//
// For each field: a required field with an empty value (nil, empty string,
// empty array) produces an error and no further checks run for that field.
// Present values are dispatched to kind-specific checks. Unknown keys in data
// are ignored; the schema is authoritative.
func Validate(schema []FieldDef, data map[string]any) Result {
	var errs []FieldError

	for _, field := range schema {
		value, ok := data[field.ID]
		if !ok || isEmpty(value) {
			if field.Required {
				errs = append(errs, FieldError{
					Field:   field.ID,
					Message: fmt.Sprintf("%s is required", labelOf(field)),
				})
			}
			continue
		}

		if msg := checkField(field, value); msg != "" {
			errs = append(errs, FieldError{Field: field.ID, Message: msg})
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ValidateStrict runs Validate and converts a failed result into a single
// aggregated CodeValidation domain error carrying the per-field list.
func ValidateStrict(schema []FieldDef, data map[string]any) error {
	result := Validate(schema, data)
	if result.Valid {
		return nil
	}

	messages := make([]string, 0, len(result.Errors))
	fields := make([]dErrors.FieldError, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
		fields = append(fields, dErrors.FieldError{Field: e.Field, Message: e.Message})
	}
	return dErrors.NewValidation(strings.Join(messages, "; "), fields)
}

func checkField(field FieldDef, value any) string {
	switch field.Kind {
	case KindText, KindTextarea:
		return checkText(field, value)
	case KindEmail:
		return checkEmail(field, value)
	case KindPhone:
		return checkPhone(field, value)
	case KindNumber:
		return checkNumber(field, value)
	case KindSelect, KindRadio:
		return checkOption(field, value)
	case KindMultiSelect, KindCheckboxGroup:
		return checkOptionList(field, value)
	case KindDate:
		return checkDate(field, value)
	case KindFile:
		// Upload validation is the file collaborator's concern.
		return ""
	default:
		return fmt.Sprintf("%s has an unsupported field kind %q", labelOf(field), field.Kind)
	}
}

func checkText(field FieldDef, value any) string {
	s, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%s must be text", labelOf(field))
	}
	length := len([]rune(s))
	if field.MinLength > 0 && length < field.MinLength {
		return fmt.Sprintf("%s must be at least %d characters", labelOf(field), field.MinLength)
	}
	if field.MaxLength > 0 && length > field.MaxLength {
		return fmt.Sprintf("%s must be at most %d characters", labelOf(field), field.MaxLength)
	}
	if field.Pattern != "" {
		re, err := regexp.Compile(field.Pattern)
		if err != nil {
			return fmt.Sprintf("%s has a misconfigured pattern", labelOf(field))
		}
		if !re.MatchString(s) {
			return fmt.Sprintf("%s has an invalid format", labelOf(field))
		}
	}
	return ""
}

func checkEmail(field FieldDef, value any) string {
	s, ok := value.(string)
	if !ok || !emailPattern.MatchString(s) {
		return fmt.Sprintf("%s must be a valid email address", labelOf(field))
	}
	return ""
}

func checkPhone(field FieldDef, value any) string {
	s, ok := value.(string)
	if !ok || !phonePattern.MatchString(s) {
		return fmt.Sprintf("%s must be a valid phone number", labelOf(field))
	}
	return ""
}

func checkNumber(field FieldDef, value any) string {
	n, ok := coerceNumber(value)
	if !ok {
		return fmt.Sprintf("%s must be a number", labelOf(field))
	}
	if field.Min != nil && n < *field.Min {
		return fmt.Sprintf("%s must be at least %v", labelOf(field), *field.Min)
	}
	if field.Max != nil && n > *field.Max {
		return fmt.Sprintf("%s must be at most %v", labelOf(field), *field.Max)
	}
	return ""
}

func checkOption(field FieldDef, value any) string {
	s, ok := value.(string)
	if !ok || !containsOption(field.Options, s) {
		return fmt.Sprintf("%s must be one of the available options", labelOf(field))
	}
	return ""
}

func checkOptionList(field FieldDef, value any) string {
	items, ok := toStringSlice(value)
	if !ok {
		return fmt.Sprintf("%s must be a list of options", labelOf(field))
	}
	for _, item := range items {
		if !containsOption(field.Options, item) {
			return fmt.Sprintf("%s contains an unavailable option %q", labelOf(field), item)
		}
	}
	return ""
}

func checkDate(field FieldDef, value any) string {
	s, ok := value.(string)
	if !ok {
		return fmt.Sprintf("%s must be a date", labelOf(field))
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return ""
		}
	}
	return fmt.Sprintf("%s must be a valid date", labelOf(field))
}

// isEmpty reports whether a submitted value counts as absent: nil, an empty
// or whitespace-only string, or an empty array.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

// coerceNumber accepts JSON numbers and numeric strings, the shapes a
// map[string]any submission can carry a number in.
func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

func labelOf(field FieldDef) string {
	if field.Label != "" {
		return field.Label
	}
	return field.ID
}

package form

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "ysvs/pkg/domain-errors"
)

type ValidatorSuite struct {
	suite.Suite
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func floatPtr(f float64) *float64 { return &f }

// TestRequiredFields verifies the required/empty semantics: nil, empty string,
// and empty array all count as absent, and absence short-circuits other checks.
func (s *ValidatorSuite) TestRequiredFields() {
	schema := []FieldDef{
		{ID: "name", Label: "Full name", Kind: KindText, Required: true, MinLength: 3},
	}

	s.Run("missing required field is reported by name", func() {
		result := Validate(schema, map[string]any{})
		s.False(result.Valid)
		s.Require().Len(result.Errors, 1)
		s.Equal("name", result.Errors[0].Field)
	})

	s.Run("empty string counts as absent", func() {
		result := Validate(schema, map[string]any{"name": "   "})
		s.False(result.Valid)
		s.Equal("name", result.Errors[0].Field)
		// The message is the required message, not the min-length one.
		s.Contains(result.Errors[0].Message, "required")
	})

	s.Run("empty array counts as absent", func() {
		multi := []FieldDef{{ID: "topics", Kind: KindMultiSelect, Required: true, Options: []string{"a"}}}
		result := Validate(multi, map[string]any{"topics": []any{}})
		s.False(result.Valid)
	})

	s.Run("optional empty field passes", func() {
		optional := []FieldDef{{ID: "nickname", Kind: KindText}}
		result := Validate(optional, map[string]any{})
		s.True(result.Valid)
	})

	s.Run("populated field passes", func() {
		result := Validate(schema, map[string]any{"name": "Amal Saleh"})
		s.True(result.Valid)
		s.Empty(result.Errors)
	})
}

func (s *ValidatorSuite) TestTextConstraints() {
	s.Run("enforces min and max length", func() {
		schema := []FieldDef{{ID: "bio", Kind: KindTextarea, MinLength: 5, MaxLength: 10}}
		s.False(Validate(schema, map[string]any{"bio": "abc"}).Valid)
		s.False(Validate(schema, map[string]any{"bio": "abcdefghijk"}).Valid)
		s.True(Validate(schema, map[string]any{"bio": "abcdef"}).Valid)
	})

	s.Run("enforces pattern", func() {
		schema := []FieldDef{{ID: "license", Kind: KindText, Pattern: `^MD-\d{4}$`}}
		s.False(Validate(schema, map[string]any{"license": "12345"}).Valid)
		s.True(Validate(schema, map[string]any{"license": "MD-0042"}).Valid)
	})

	s.Run("non-string value is rejected", func() {
		schema := []FieldDef{{ID: "bio", Kind: KindText}}
		s.False(Validate(schema, map[string]any{"bio": 42}).Valid)
	})
}

func (s *ValidatorSuite) TestEmailAndPhone() {
	s.Run("email shapes", func() {
		schema := []FieldDef{{ID: "email", Kind: KindEmail}}
		s.True(Validate(schema, map[string]any{"email": "dr.saleh@hospital.ye"}).Valid)
		s.False(Validate(schema, map[string]any{"email": "not-an-email"}).Valid)
		s.False(Validate(schema, map[string]any{"email": "a@b"}).Valid)
	})

	s.Run("phone shapes", func() {
		schema := []FieldDef{{ID: "phone", Kind: KindPhone}}
		s.True(Validate(schema, map[string]any{"phone": "+967 777 123 456"}).Valid)
		s.True(Validate(schema, map[string]any{"phone": "01-2345678"}).Valid)
		s.False(Validate(schema, map[string]any{"phone": "call me"}).Valid)
	})
}

func (s *ValidatorSuite) TestNumberCoercion() {
	schema := []FieldDef{{ID: "years", Kind: KindNumber, Min: floatPtr(0), Max: floatPtr(60)}}

	s.Run("accepts JSON float and numeric string", func() {
		s.True(Validate(schema, map[string]any{"years": 12.0}).Valid)
		s.True(Validate(schema, map[string]any{"years": "12"}).Valid)
	})

	s.Run("enforces bounds", func() {
		s.False(Validate(schema, map[string]any{"years": -1.0}).Valid)
		s.False(Validate(schema, map[string]any{"years": 61.0}).Valid)
	})

	s.Run("rejects non-numeric", func() {
		s.False(Validate(schema, map[string]any{"years": "a dozen"}).Valid)
	})
}

func (s *ValidatorSuite) TestOptionFields() {
	s.Run("select value must be declared", func() {
		schema := []FieldDef{{ID: "session", Kind: KindSelect, Options: []string{"morning", "evening"}}}
		s.True(Validate(schema, map[string]any{"session": "morning"}).Valid)
		s.False(Validate(schema, map[string]any{"session": "midnight"}).Valid)
	})

	s.Run("multiselect members must all be declared", func() {
		schema := []FieldDef{{ID: "topics", Kind: KindCheckboxGroup, Options: []string{"vascular", "trauma"}}}
		s.True(Validate(schema, map[string]any{"topics": []any{"vascular", "trauma"}}).Valid)
		s.False(Validate(schema, map[string]any{"topics": []any{"vascular", "cardio"}}).Valid)
	})

	s.Run("multiselect requires an array", func() {
		schema := []FieldDef{{ID: "topics", Kind: KindMultiSelect, Options: []string{"vascular"}}}
		s.False(Validate(schema, map[string]any{"topics": "vascular"}).Valid)
	})
}

func (s *ValidatorSuite) TestDateAndFile() {
	s.Run("date must parse", func() {
		schema := []FieldDef{{ID: "dob", Kind: KindDate}}
		s.True(Validate(schema, map[string]any{"dob": "1985-04-12"}).Valid)
		s.True(Validate(schema, map[string]any{"dob": "2025-04-12T10:00:00Z"}).Valid)
		s.False(Validate(schema, map[string]any{"dob": "12/04/1985"}).Valid)
	})

	s.Run("file fields are not validated here", func() {
		schema := []FieldDef{{ID: "cv", Kind: KindFile}}
		s.True(Validate(schema, map[string]any{"cv": "upload-handle-123"}).Valid)
	})
}

// TestMultipleErrors verifies all invalid fields are reported in one pass.
func (s *ValidatorSuite) TestMultipleErrors() {
	schema := []FieldDef{
		{ID: "name", Kind: KindText, Required: true},
		{ID: "email", Kind: KindEmail, Required: true},
		{ID: "years", Kind: KindNumber},
	}
	result := Validate(schema, map[string]any{"email": "bad", "years": "many"})
	s.False(result.Valid)
	s.Len(result.Errors, 3)
}

func (s *ValidatorSuite) TestValidateStrict() {
	schema := []FieldDef{{ID: "email", Kind: KindEmail, Required: true}}

	s.Run("valid submission returns nil", func() {
		s.NoError(ValidateStrict(schema, map[string]any{"email": "a@b.co"}))
	})

	s.Run("invalid submission aggregates into one coded error", func() {
		err := ValidateStrict(schema, map[string]any{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		var dErr *dErrors.Error
		s.Require().ErrorAs(err, &dErr)
		s.Require().Len(dErr.Fields, 1)
		s.Equal("email", dErr.Fields[0].Field)
	})
}

// TestDeterminism pins the pure-function property: same inputs, same output.
func (s *ValidatorSuite) TestDeterminism() {
	schema := []FieldDef{
		{ID: "name", Kind: KindText, Required: true, MinLength: 2},
		{ID: "topics", Kind: KindMultiSelect, Options: []string{"a", "b"}},
	}
	data := map[string]any{"name": "x", "topics": []any{"a", "c"}}

	first := Validate(schema, data)
	for range 10 {
		s.Equal(first, Validate(schema, data))
	}
}

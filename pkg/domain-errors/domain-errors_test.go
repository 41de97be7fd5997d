package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "registration not found"}
		s.Equal("registration not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeCapacityExceeded}
		s.Equal("capacity_exceeded", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeConflict, Message: "already registered"}
		err2 := &Error{Code: CodeConflict, Message: "duplicate certificate"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeNotFound}
		err2 := &Error{Code: CodeConflict}
		s.False(err1.Is(err2))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	s.Run("wrapping a domain error keeps the inner code", func() {
		inner := New(CodeCapacityExceeded, "ticket type sold out")
		wrapped := Wrap(inner, CodeInternal, "reserve ticket")
		s.True(HasCode(wrapped, CodeCapacityExceeded))
		s.False(HasCode(wrapped, CodeInternal))
	})

	s.Run("wrapping a plain error applies the given code", func() {
		wrapped := Wrap(errors.New("boom"), CodeInternal, "store failure")
		s.True(HasCode(wrapped, CodeInternal))
	})

	s.Run("wrapping preserves validation fields", func() {
		inner := NewValidation("form data invalid", []FieldError{{Field: "email", Message: "required"}})
		wrapped := Wrap(inner, CodeInternal, "register")
		var e *Error
		s.Require().True(errors.As(wrapped, &e))
		s.Len(e.Fields, 1)
		s.Equal("email", e.Fields[0].Field)
	})
}

func (s *DomainErrorsSuite) TestHasCode() {
	s.Run("finds code through fmt.Errorf chains", func() {
		err := fmt.Errorf("outer: %w", New(CodeDeadlinePassed, "deadline passed"))
		s.True(HasCode(err, CodeDeadlinePassed))
	})

	s.Run("plain errors have no code", func() {
		s.False(HasCode(errors.New("plain"), CodeInternal))
	})
}

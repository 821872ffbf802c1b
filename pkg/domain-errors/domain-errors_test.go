package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the coded error primitives every layer translates into.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Run("message wins over code", func() {
		err := &Error{Code: CodeTokenRevoked, Message: "token has been revoked"}
		s.Equal("token has been revoked", err.Error())
	})

	s.Run("falls back to code", func() {
		err := &Error{Code: CodeActiveSessionConflict}
		s.Equal("active_session_conflict", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.Run("same code different message", func() {
		a := &Error{Code: CodeInvalidCredentials, Message: "unknown code"}
		b := &Error{Code: CodeInvalidCredentials, Message: "wrong secret"}
		s.True(errors.Is(a, b))
	})

	s.Run("different codes", func() {
		s.False(errors.Is(New(CodeTokenExpired, "x"), &Error{Code: CodeTokenMalformed}))
	})

	s.Run("plain errors never match", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not_found")))
	})

	s.Run("matches through an fmt wrap", func() {
		err := fmt.Errorf("logout: %w", New(CodeTokenRevoked, "already revoked"))
		s.True(errors.Is(err, &Error{Code: CodeTokenRevoked}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("keeps the inner domain code", func() {
		inner := New(CodeTenantNotFound, "tenant not found")
		wrapped := Wrap(inner, CodeInternal, "resolve tenant")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeTenantNotFound, domainErr.Code)
		s.Equal("resolve tenant", domainErr.Message)
	})

	s.Run("applies the given code to infrastructure errors", func() {
		root := errors.New("dial tcp: connection refused")
		wrapped := Wrap(root, CodeUnavailable, "session store unavailable")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, root))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.False(HasCode(nil, CodeNotFound))
	s.False(HasCode(errors.New("plain"), CodeNotFound))
	s.True(HasCode(New(CodeTokenExpired, "expired"), CodeTokenExpired))

	s.Equal(CodeActiveSessionConflict, CodeOf(fmt.Errorf("login: %w", New(CodeActiveSessionConflict, "busy"))))
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
}

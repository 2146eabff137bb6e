// Package pkg holds helpers shared across layers: the domain error taxonomy
// and the JSON response envelope.
//
// Services return these sentinels (wrapped with %w), handlers map them to
// HTTP status codes:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
package pkg

import (
	"errors"
	"fmt"
	"time"
)

// Domain-level errors.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation error")
	ErrStorage         = errors.New("storage failure")
	ErrRateLimited     = errors.New("rate limited")
)

// DeniedError is a business-rule denial (active ban, insufficient trust,
// missing moderator role). Code is stable and safe to show to clients;
// the presentation layer maps it to copy.
type DeniedError struct {
	Code  string
	Until *time.Time
}

func (e *DeniedError) Error() string {
	if e.Until != nil {
		return fmt.Sprintf("unauthorized: %s until %s", e.Code, e.Until.UTC().Format(time.RFC3339))
	}
	return "unauthorized: " + e.Code
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match denials.
func (e *DeniedError) Unwrap() error {
	return ErrUnauthorized
}

// Deny builds a DeniedError without an expiry.
func Deny(code string) *DeniedError {
	return &DeniedError{Code: code}
}

// AsDenied extracts a DeniedError from an error chain.
func AsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

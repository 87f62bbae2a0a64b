// Package errs contains sentinel and typed errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinels across repo/service layers.
var (
	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoUser indicates the request carries no resolvable user.
	ErrNoUser = errors.New("user not authenticated")
)

// CodeUniqueViolation is the SQL state reported on duplicate keys.
const CodeUniqueViolation = "23505"

// StoreError wraps a failed backing-store call together with its SQL state.
type StoreError struct {
	Op    string // insert, update, delete, select
	Table string
	Code  string // SQL state, empty when the failure did not come from the database
	Err   error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: [%s] %v", e.Op, e.Table, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Code returns the SQL state carried by err, or "" if there is none.
func Code(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsUniqueViolation reports whether err carries the duplicate-key SQL state.
func IsUniqueViolation(err error) bool { return Code(err) == CodeUniqueViolation }

// Violation is a single schema problem found in a request body.
type Violation struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// BadRequestError is returned for request bodies that are not valid JSON.
type BadRequestError struct{ Err error }

func (e *BadRequestError) Error() string { return "bad request" }

func (e *BadRequestError) Unwrap() error { return e.Err }

// InvalidBodyError is returned for JSON bodies that do not match the push shape.
type InvalidBodyError struct{ Details []Violation }

func (e *InvalidBodyError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, v := range e.Details {
		parts = append(parts, v.Field+": "+v.Rule)
	}
	return "invalid request body: " + strings.Join(parts, "; ")
}

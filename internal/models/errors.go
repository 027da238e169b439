package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrHeaderNotFound ErrorType = iota
	ErrMissingManifest
	ErrMissingCoordinateAttribute
	ErrBadBuildTimestamp
	ErrMissingExtensionDocs
	ErrDocsParse
	ErrPrecondition
	ErrInvalidBundle
	ErrCatalogGen
	ErrSigning
	ErrFileOp
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrHeaderNotFound:
		return "HeaderNotFound"
	case ErrMissingManifest:
		return "MissingManifest"
	case ErrMissingCoordinateAttribute:
		return "MissingCoordinateAttribute"
	case ErrBadBuildTimestamp:
		return "BadBuildTimestamp"
	case ErrMissingExtensionDocs:
		return "MissingExtensionDocs"
	case ErrDocsParse:
		return "DocsParseFailure"
	case ErrPrecondition:
		return "PreconditionViolation"
	case ErrInvalidBundle:
		return "InvalidBundle"
	case ErrCatalogGen:
		return "CatalogGen"
	case ErrSigning:
		return "Signing"
	case ErrFileOp:
		return "FileOp"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// BundleError represents an error raised while extracting or cataloguing a bundle
type BundleError struct {
	Type   ErrorType
	Bundle string
	Err    error
}

// Error implements the error interface
func (e *BundleError) Error() string {
	if e.Bundle != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Bundle, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *BundleError) Unwrap() error {
	return e.Err
}

// NewError builds a BundleError from a format string.
func NewError(t ErrorType, format string, args ...interface{}) *BundleError {
	return &BundleError{Type: t, Err: fmt.Errorf(format, args...)}
}

// IsErrorType reports whether any BundleError in err's chain has type t.
func IsErrorType(err error, t ErrorType) bool {
	for err != nil {
		var be *BundleError
		if !errors.As(err, &be) {
			return false
		}
		if be.Type == t {
			return true
		}
		err = be.Err
	}
	return false
}

// ValidationError lists every invariant a value failed.
type ValidationError struct {
	Entity   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(e.Problems, "; "))
}

// validator accumulates problems for a single entity.
type validator struct {
	entity   string
	problems []string
}

func newValidator(entity string) *validator {
	return &validator{entity: entity}
}

func (v *validator) notBlank(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.problems = append(v.problems, field+" is required")
	}
}

func (v *validator) check(ok bool, problem string) {
	if !ok {
		v.problems = append(v.problems, problem)
	}
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Entity: v.entity, Problems: v.problems}
}

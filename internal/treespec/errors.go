package treespec

import (
	"errors"
	"fmt"
)

// DocError represents a tree document that failed to load or build.
type DocError struct {
	// Code identifies the error category.
	Code DocErrorCode

	// Message is a human-readable description. Schema errors carry the
	// CUE validator's position-annotated detail.
	Message string

	// Node names the offending node, when known.
	Node string
}

// DocErrorCode categorizes document errors.
type DocErrorCode string

const (
	// ErrCodeYAML indicates the document is not well-formed YAML.
	ErrCodeYAML DocErrorCode = "YAML"

	// ErrCodeSchema indicates the document violates the embedded CUE
	// schema.
	ErrCodeSchema DocErrorCode = "SCHEMA"

	// ErrCodeDuplicateName indicates two nodes share a name.
	ErrCodeDuplicateName DocErrorCode = "DUPLICATE_NAME"

	// ErrCodeBadValue indicates a provided or default value does not
	// match its declared kind.
	ErrCodeBadValue DocErrorCode = "BAD_VALUE"
)

// Error implements the error interface.
func (e *DocError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaError returns true if the error is a YAML or schema violation.
// Uses errors.As to handle wrapped errors.
func IsSchemaError(err error) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Code == ErrCodeYAML || de.Code == ErrCodeSchema
	}
	return false
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Handlers check for it before falling back to sentinel matching.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("resource already exists")
	ErrAdapter        = errors.New("llm adapter failed")
	ErrAdapterTimeout = errors.New("llm adapter timed out")
)

// InvalidDocumentError indicates the document breaks the unique block id invariant.
// It is raised before any model invocation.
type InvalidDocumentError struct {
	DuplicateIDs []string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document: duplicate block ids [%s]", strings.Join(e.DuplicateIDs, ", "))
}

func (e *InvalidDocumentError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation
func (e *InvalidDocumentError) Is(target error) bool {
	return target == ErrValidation
}

// ReferenceError indicates a tool call named a block that is not in the document.
type ReferenceError struct {
	BlockID string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("block not found: %q", e.BlockID)
}

// Is allows errors.Is() to match against ErrNotFound
func (e *ReferenceError) Is(target error) bool {
	return target == ErrNotFound
}

// MalformedToolCallError indicates a tool call failed schema validation.
type MalformedToolCallError struct {
	ToolName string
	Reason   string
}

func (e *MalformedToolCallError) Error() string {
	if e.ToolName == "" {
		return "malformed tool call: " + e.Reason
	}
	return fmt.Sprintf("malformed %s call: %s", e.ToolName, e.Reason)
}

// Is allows errors.Is() to match against ErrValidation
func (e *MalformedToolCallError) Is(target error) bool {
	return target == ErrValidation
}

// AdapterError wraps a failed LLM adapter invocation.
type AdapterError struct {
	Provider string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("llm adapter %s: %v", e.Provider, e.Err)
}

func (e *AdapterError) Unwrap() error   { return e.Err }
func (e *AdapterError) StatusCode() int { return http.StatusBadGateway }

// Is allows errors.Is() to match against ErrAdapter
func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapter
}

// AdapterTimeoutError indicates the adapter exceeded its time budget.
type AdapterTimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *AdapterTimeoutError) Error() string {
	return fmt.Sprintf("llm adapter %s: no response within %s", e.Provider, e.Timeout)
}

func (e *AdapterTimeoutError) StatusCode() int { return http.StatusGatewayTimeout }

// Is matches both ErrAdapterTimeout and ErrAdapter
func (e *AdapterTimeoutError) Is(target error) bool {
	return target == ErrAdapterTimeout || target == ErrAdapter
}

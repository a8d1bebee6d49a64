// Package errors provides the error taxonomy of the lesson pipeline and its
// conversion into BPMN errors for job workers.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Transient failures are recovered inside the stage that observed them; only
// the terminal codes reach a user-visible turn.
const (
	ErrCodeLLISTimeout       ErrorCode = "LLIS_TIMEOUT"
	ErrCodeLLISRequestFailed ErrorCode = "LLIS_REQUEST_FAILED"
	ErrCodeLLISEmptyResult   ErrorCode = "LLIS_EMPTY_RESULT"

	ErrCodeGenerationTimeout         ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeGenerationFailed          ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationMalformedOutput ErrorCode = "GENERATION_MALFORMED_OUTPUT"

	ErrCodeNoLessonsFound ErrorCode = "NO_LESSONS_FOUND"
	ErrCodePipelineFailed ErrorCode = "PIPELINE_FAILED"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewLLISTimeoutError(cause error) *StandardError {
	return newError(ErrCodeLLISTimeout, "Lesson search timed out", cause)
}

func NewLLISRequestFailedError(cause error) *StandardError {
	return newError(ErrCodeLLISRequestFailed, "Lesson search request failed", cause)
}

func NewLLISEmptyResultError() *StandardError {
	return newError(ErrCodeLLISEmptyResult, "Lesson search returned no lessons", nil)
}

func NewGenerationTimeoutError(cause error) *StandardError {
	return newError(ErrCodeGenerationTimeout, "Language generation timed out", cause)
}

func NewGenerationFailedError(cause error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Language generation failed", cause)
}

func NewGenerationMalformedOutputError(cause error) *StandardError {
	return newError(ErrCodeGenerationMalformedOutput, "Language generation returned unusable output", cause)
}

// NewNoLessonsFoundError is the one terminal condition of the nominal pipeline.
func NewNoLessonsFoundError(query string) *StandardError {
	e := newError(ErrCodeNoLessonsFound, "No relevant lessons found", nil)
	e.Metadata = map[string]interface{}{"query": query}
	return e
}

func NewPipelineFailedError(cause error) *StandardError {
	return newError(ErrCodePipelineFailed, "Unexpected failure while processing the question", cause)
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// ClassifyTimeout returns timeoutErr when err stems from a cancelled or
// expired context, otherwise failedErr.
func ClassifyTimeout(err error, timeoutErr, failedErr func(error) *StandardError) *StandardError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return timeoutErr(err)
	}
	return failedErr(err)
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the job retry count for a code. Nothing in the
// pipeline is retried: a re-asked question starts a fresh run.
func GetRetryCount(code ErrorCode) int {
	return 0
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   GetRetryCount(stdErr.Code),
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LLIS"):
		return "RETRIEVAL"
	case strings.HasPrefix(codeStr, "GENERATION"):
		return "AI"
	case code == ErrCodeNoLessonsFound || code == ErrCodePipelineFailed:
		return "CONVERSATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// UserMessage renders a terminal error as the text of an error turn.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case ErrCodeNoLessonsFound:
		return "I couldn't find any NASA lessons relevant to your question. Try rephrasing it or naming a mission, system or subject."
	default:
		return "I encountered an issue processing your request. Please try asking again."
	}
}

package models

import (
	"errors"
	"fmt"
	"time"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeNavigation       = "NAVIGATION_FAILED"
	ErrCodeSelectorNotFound = "SELECTOR_NOT_FOUND"
	ErrCodeNoResults        = "NO_RESULTS"
	ErrCodeExtraction       = "EXTRACTION_FAILED"
	ErrCodeBrowserLaunch    = "BROWSER_LAUNCH_FAILED"
	ErrCodeBusy             = "BUSY"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeBatchTooLarge    = "BATCH_TOO_LARGE"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// IsValidation reports whether the error was caused by bad caller input.
func (e *ScrapeError) IsValidation() bool {
	return e.Code == ErrCodeInvalidInput || e.Code == ErrCodeBatchTooLarge
}

// AsScrapeError unwraps err into a ScrapeError, wrapping unknown errors
// as INTERNAL_ERROR.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}

// NewNavigationError reports that the target page could not be loaded.
func NewNavigationError(err error) *ScrapeError {
	return NewScrapeError(ErrCodeNavigation, "navigation to lookup site failed", err)
}

// NewSelectorNotFoundError reports that an expected element never appeared.
func NewSelectorNotFoundError(selector string, err error) *ScrapeError {
	return NewScrapeError(ErrCodeSelectorNotFound, fmt.Sprintf("element %q not found", selector), err)
}

// NewNoResultsError reports a session that ran but rendered no usable data.
func NewNoResultsError() *ScrapeError {
	return NewScrapeError(ErrCodeNoResults, "no results found", nil)
}

// NewValidationError reports bad caller input.
func NewValidationError(message string) *ScrapeError {
	return NewScrapeError(ErrCodeInvalidInput, message, nil)
}

// NewBatchTooLargeError reports a batch above the allowed size.
func NewBatchTooLargeError(size, max int) *ScrapeError {
	return NewScrapeError(ErrCodeBatchTooLarge, fmt.Sprintf("maximum %d usernames per batch, got %d", max, size), nil)
}

// NewBusyError creates a BUSY error for a lookup that could not get a
// browser session slot within wait.
func NewBusyError(wait time.Duration) *ScrapeError {
	return NewScrapeError(ErrCodeBusy, fmt.Sprintf("no browser session available within %s", wait), nil)
}

package models

import "time"

// LookupResult is the outcome of one lookup: either a success carrying a
// RegionRecord or a failure carrying a reason. Build it with Succeeded or
// Failed rather than by hand.
type LookupResult struct {
	Success    bool          `json:"success"`
	Identifier string        `json:"username"`
	Data       *RegionRecord `json:"data,omitempty"`
	Error      string        `json:"error,omitempty"`
	Code       string        `json:"code,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`

	// Cached is set when the result was served from the lookup cache.
	Cached bool `json:"-"`
}

// Succeeded builds a successful result.
func Succeeded(identifier string, record RegionRecord, at time.Time) LookupResult {
	return LookupResult{
		Success:    true,
		Identifier: identifier,
		Data:       &record,
		Timestamp:  at.UTC(),
	}
}

// Failed builds a failed result from err. Non-ScrapeErrors become
// INTERNAL_ERROR. Session failures carry their underlying cause after the
// message; validation failures carry the message alone.
func Failed(identifier string, err error, at time.Time) LookupResult {
	se := AsScrapeError(err)
	msg := se.Message
	if se.Err != nil && !se.IsValidation() {
		if cause := se.Err.Error(); cause != msg {
			msg += ": " + cause
		}
	}
	return LookupResult{
		Success:    false,
		Identifier: identifier,
		Error:      msg,
		Code:       se.Code,
		Timestamp:  at.UTC(),
	}
}

// IsValidationFailure reports whether the failure was caused by bad input.
func (r LookupResult) IsValidationFailure() bool {
	return !r.Success && (r.Code == ErrCodeInvalidInput || r.Code == ErrCodeBatchTooLarge)
}

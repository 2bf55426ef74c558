package models

import "time"

// BatchResponse is the response for POST /api/batch-region.
type BatchResponse struct {
	Success bool           `json:"success"`
	Results []LookupResult `json:"results"`
}

// ErrorResponse is the body of request-level errors (bad input, auth,
// rate limiting) that never reached a lookup.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// NewErrorResponse builds an ErrorResponse from a ScrapeError.
func NewErrorResponse(e *ScrapeError) ErrorResponse {
	return ErrorResponse{Success: false, Error: e.Message, Code: e.Code}
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceDescriptor is the response for GET /.
type ServiceDescriptor struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Source    string            `json:"source"`
	Endpoints map[string]string `json:"endpoints"`
}

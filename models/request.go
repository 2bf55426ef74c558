package models

import "strings"

// IdentifierMarker is the optional leading character of a profile handle.
const IdentifierMarker = "@"

// LookupRequest is a validated lookup for one profile identifier.
type LookupRequest struct {
	// Identifier is the normalized handle: trimmed, without leading marker.
	Identifier string
}

// NormalizeIdentifier trims whitespace and strips one leading "@".
// "@abc " and "abc" normalize to the same value.
func NormalizeIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, IdentifierMarker)
	return strings.TrimSpace(s)
}

// NewLookupRequest normalizes raw and rejects identifiers that end up empty.
func NewLookupRequest(raw string) (LookupRequest, error) {
	id := NormalizeIdentifier(raw)
	if id == "" {
		return LookupRequest{}, NewValidationError("username parameter is required")
	}
	return LookupRequest{Identifier: id}, nil
}

// BatchRequest is the payload for POST /api/batch-region.
type BatchRequest struct {
	// Usernames is the list of identifiers to look up, five at most.
	Usernames []string `json:"usernames"`
}

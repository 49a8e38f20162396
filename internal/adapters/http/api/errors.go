package api

import "errors"

// Sentinel kinds for API errors. The text is the public 400 message.
//
//nolint:staticcheck // capitalised to match the published API
var (
	ErrInvalidSort = errors.New("Invalid sort")
	ErrInvalidUnit = errors.New("Invalid unit")
	ErrInvalidPage = errors.New("Invalid page")
)

// Public messages.
const (
	msgElectionNotFound = "election not found"
	msgPartyNotFound    = "party not found"
	msgAreaNotFound     = "area not found"
	msgInternal         = "We're sorry, but there's an issue on our side. Please try again later."
)

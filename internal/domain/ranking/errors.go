package ranking

import "errors"

var (
	ErrInvalidSort = errors.New("invalid sort")
	ErrInvalidPage = errors.New("invalid page")
	// ErrScopeUnit is returned when a unit cannot be narrowed to a scope.
	ErrScopeUnit = errors.New("unit not rankable within scope")
)

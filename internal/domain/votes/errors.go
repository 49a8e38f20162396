package votes

import "errors"

var (
	// ErrUnsupportedUnit is returned for operations that cannot run at a unit,
	// such as ranking the single national area.
	ErrUnsupportedUnit = errors.New("unsupported unit")
	// ErrNoLineage is returned when the store was built without a resolver.
	ErrNoLineage = errors.New("municipality lineage not loaded")
)

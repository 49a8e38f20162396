package area

import "errors"

// Sentinel kinds for area errors.
var (
	ErrNotFound        = errors.New("area not found")
	ErrNotLive         = errors.New("municipality is archived")
	ErrLineageConflict = errors.New("municipality maps to more than one live ancestor")
	ErrOrphanArchived  = errors.New("archived municipality has no live ancestor")
	ErrLineageCycle    = errors.New("municipality lineage contains a cycle")
	ErrInvalidUnit     = errors.New("invalid unit")
	ErrUnknownScope    = errors.New("unknown scope")
)

package smoke

import "errors"

var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrStatus       = errors.New("unexpected status")
	ErrInconsistent = errors.New("inconsistent ranking")
	ErrNoTargets    = errors.New("nothing to check")
)

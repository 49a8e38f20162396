package service

import (
	"errors"
	"fmt"

	"github.com/okian/partystats/internal/domain/area"
)

var (
	ErrElectionNotFound = errors.New("election not found")
	ErrPartyNotFound    = errors.New("party not found")
	ErrAreaNotFound     = errors.New("area not found")
	ErrNotStarted       = errors.New("service not started")
)

// RedirectError reports that a request names a legacy or archived area and
// should be repeated against Scope.
type RedirectError struct {
	Scope area.Scope
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("area moved to %s %s", e.Scope.Kind(), e.Scope.Code())
}

package ranking

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/partystats/internal/domain/area"
)

// Narrowing keeps the keys of a national list that fall inside a scope.
type Narrowing struct {
	identity bool
	codes    map[string]struct{}
	prefixes []string
}

// NewNarrowing builds the filter for scope at unit. regionPrefectures lists
// the prefecture codes of a region scope and is ignored otherwise.
func NewNarrowing(scope area.Scope, unit area.Unit, regionPrefectures []string) (Narrowing, error) {
	switch scope.Kind() {
	case area.KindNational:
		return Narrowing{identity: true}, nil
	case area.KindRegion:
		switch unit {
		case area.UnitPrefecture:
			codes := make(map[string]struct{}, len(regionPrefectures))
			for _, c := range regionPrefectures {
				codes[c] = struct{}{}
			}
			return Narrowing{codes: codes}, nil
		case area.UnitMunicipality:
			prefixes := make([]string, 0, len(regionPrefectures))
			for _, c := range regionPrefectures {
				prefixes = append(prefixes, area.PrefecturePrefix(c))
			}
			slices.Sort(prefixes)
			return Narrowing{prefixes: slices.Compact(prefixes)}, nil
		}
	case area.KindPrefecture, area.KindMunicipality:
		if unit == area.UnitMunicipality {
			return Narrowing{prefixes: []string{area.PrefecturePrefix(scope.Code())}}, nil
		}
	default:
		return Narrowing{}, fmt.Errorf("%w: %s", area.ErrUnknownScope, scope.Kind())
	}
	return Narrowing{}, fmt.Errorf("%w: %s in %s", ErrScopeUnit, unit, scope.Kind())
}

// Apply returns the keys inside the scope in their original order.
func (n Narrowing) Apply(keys []string) []string {
	if n.identity {
		return keys
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if n.match(k) {
			out = append(out, k)
		}
	}
	return out
}

func (n Narrowing) match(key string) bool {
	if n.codes != nil {
		_, ok := n.codes[key]
		return ok
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

package area

import (
	"fmt"
	"sort"

	"github.com/okian/partystats/internal/domain/model"
)

// Lineage resolves the historical identity of municipalities. It is built
// once from the closure relation and is read-only afterwards, so it is safe
// for concurrent use.
//
// Every municipality code that ever existed maps to exactly one live
// municipality; every live municipality owns the set of codes mapped to it,
// itself included.
type Lineage struct {
	archived    map[string]bool
	ancestorOf  map[string]string
	descendants map[string][]string
}

// NewLineage builds the resolver and validates the closure invariants.
// Edges whose ancestor is archived are followed transitively, so a chain of
// mergers does not need to be flattened upstream.
func NewLineage(municipalities []model.Municipality, edges []model.LineageEdge) (*Lineage, error) {
	l := &Lineage{
		archived:    make(map[string]bool, len(municipalities)),
		ancestorOf:  make(map[string]string, len(municipalities)),
		descendants: make(map[string][]string),
	}
	for _, m := range municipalities {
		l.archived[m.Code] = m.Archived
		if !m.Archived {
			l.ancestorOf[m.Code] = m.Code
		}
	}

	parents := make(map[string][]string)
	for _, e := range edges {
		if e.Ancestor == e.Descendant {
			continue
		}
		ancArchived, ok := l.archived[e.Ancestor]
		if !ok {
			return nil, fmt.Errorf("%w: lineage ancestor %s", ErrNotFound, e.Ancestor)
		}
		descArchived, ok := l.archived[e.Descendant]
		if !ok {
			return nil, fmt.Errorf("%w: lineage descendant %s", ErrNotFound, e.Descendant)
		}
		if ancArchived {
			parents[e.Descendant] = append(parents[e.Descendant], e.Ancestor)
			continue
		}
		if !descArchived {
			return nil, fmt.Errorf("%w: live %s listed under %s", ErrLineageConflict, e.Descendant, e.Ancestor)
		}
		if prev, ok := l.ancestorOf[e.Descendant]; ok && prev != e.Ancestor {
			return nil, fmt.Errorf("%w: %s under %s and %s", ErrLineageConflict, e.Descendant, prev, e.Ancestor)
		}
		l.ancestorOf[e.Descendant] = e.Ancestor
	}

	for code, archived := range l.archived {
		if !archived {
			continue
		}
		if _, err := l.resolve(code, parents, map[string]bool{}); err != nil {
			return nil, err
		}
	}

	for code, anc := range l.ancestorOf {
		l.descendants[anc] = append(l.descendants[anc], code)
	}
	for _, codes := range l.descendants {
		sort.Strings(codes)
	}
	return l, nil
}

// resolve finds the live ancestor of an archived code through archived
// intermediates and memoizes the answer.
func (l *Lineage) resolve(code string, parents map[string][]string, visiting map[string]bool) (string, error) {
	if anc, ok := l.ancestorOf[code]; ok {
		return anc, nil
	}
	if visiting[code] {
		return "", fmt.Errorf("%w: at %s", ErrLineageCycle, code)
	}
	visiting[code] = true
	defer delete(visiting, code)

	found := ""
	for _, p := range parents[code] {
		anc, err := l.resolve(p, parents, visiting)
		if err != nil {
			return "", err
		}
		if found != "" && found != anc {
			return "", fmt.Errorf("%w: %s under %s and %s", ErrLineageConflict, code, found, anc)
		}
		found = anc
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrOrphanArchived, code)
	}
	l.ancestorOf[code] = found
	return found, nil
}

// DescendantsOf returns every code whose facts belong to the live
// municipality liveCode, including liveCode itself, in ascending order.
func (l *Lineage) DescendantsOf(liveCode string) ([]string, error) {
	archived, ok := l.archived[liveCode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, liveCode)
	}
	if archived {
		return nil, fmt.Errorf("%w: %s", ErrNotLive, liveCode)
	}
	return append([]string(nil), l.descendants[liveCode]...), nil
}

// LiveAncestorOf returns the live municipality that code's facts are
// attributed to. A live code resolves to itself.
func (l *Lineage) LiveAncestorOf(code string) (string, error) {
	anc, ok := l.ancestorOf[code]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return anc, nil
}

// IsLive reports whether code is a known, non-archived municipality.
func (l *Lineage) IsLive(code string) bool {
	archived, ok := l.archived[code]
	return ok && !archived
}

// Len is the number of municipality codes known to the resolver.
func (l *Lineage) Len() int {
	return len(l.archived)
}

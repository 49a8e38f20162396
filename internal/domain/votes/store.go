// Package votes reads per-area vote facts and turns them into vote shares.
// Municipality facts are always aggregated over the lineage of a live code.
package votes

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/internal/domain/rate"
)

// Reader is the persistence port the store reads from.
type Reader interface {
	// Facts returns raw facts at unit, restricted to codes when non-empty.
	// Areas missing either a vote count or a total are omitted.
	Facts(ctx context.Context, unit area.Unit, electionCode, partyID string, codes []string) ([]model.Fact, error)
	// RankedCodes returns every area code at a region or prefecture unit,
	// ordered by count/total descending and code ascending.
	RankedCodes(ctx context.Context, unit area.Unit, electionCode, partyID string) ([]string, error)
	// AreaNames returns display fields for codes at unit.
	AreaNames(ctx context.Context, unit area.Unit, codes []string) ([]model.AreaName, error)
	// HistoryFacts returns facts for codes across every election.
	HistoryFacts(ctx context.Context, unit area.Unit, partyID string, codes []string) ([]model.ElectionFact, error)
	// PartyFacts returns every party's facts for codes at unit in one election.
	PartyFacts(ctx context.Context, unit area.Unit, electionCode string, codes []string) ([]model.PartyFact, error)
	// Elections returns all elections, newest first.
	Elections(ctx context.Context) ([]model.Election, error)
}

// Store answers vote questions at any unit.
type Store struct {
	reader  Reader
	lineage *area.Lineage
}

// NewStore creates a Store. lineage may be nil when no municipality unit is queried.
func NewStore(reader Reader, lineage *area.Lineage) *Store {
	return &Store{reader: reader, lineage: lineage}
}

// Votes returns one row per area at unit, restricted to codes when non-empty.
// Rows are sorted by code; callers reorder as they need.
func (s *Store) Votes(ctx context.Context, unit area.Unit, electionCode, partyID string, codes []string) ([]model.VoteRow, error) {
	var (
		facts []model.Fact
		err   error
	)
	if unit == area.UnitMunicipality {
		facts, err = s.municipalityFacts(ctx, electionCode, partyID, codes)
	} else {
		facts, err = s.reader.Facts(ctx, unit, electionCode, partyID, codes)
	}
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return []model.VoteRow{}, nil
	}

	factCodes := make([]string, len(facts))
	for i, f := range facts {
		factCodes[i] = f.AreaCode
	}
	names, err := s.reader.AreaNames(ctx, unit, factCodes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.AreaName, len(names))
	for _, n := range names {
		byCode[n.Code] = n
	}

	rows := make([]model.VoteRow, 0, len(facts))
	for _, f := range facts {
		n := byCode[f.AreaCode]
		rows = append(rows, model.VoteRow{
			Code:        f.AreaCode,
			Name:        n.Name,
			SupportText: n.SupportText,
			Count:       f.Count,
			TotalCount:  f.TotalCount,
			Rate:        rate.Share(f.Count, f.TotalCount),
		})
	}
	slices.SortFunc(rows, func(a, b model.VoteRow) int { return strings.Compare(a.Code, b.Code) })
	return rows, nil
}

// OrderedCodes returns every area code at unit ordered by vote share
// descending, ties broken by code ascending.
func (s *Store) OrderedCodes(ctx context.Context, unit area.Unit, electionCode, partyID string) ([]string, error) {
	switch unit {
	case area.UnitRegion, area.UnitPrefecture:
		return s.reader.RankedCodes(ctx, unit, electionCode, partyID)
	case area.UnitMunicipality:
		facts, err := s.municipalityFacts(ctx, electionCode, partyID, nil)
		if err != nil {
			return nil, err
		}
		sortByShare(facts)
		codes := make([]string, len(facts))
		for i, f := range facts {
			codes[i] = f.AreaCode
		}
		return codes, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedUnit, unit)
	}
}

// History returns the party's result in one area for every election that
// has data, newest first.
func (s *Store) History(ctx context.Context, unit area.Unit, partyID, areaCode string) ([]model.HistoryPoint, error) {
	elections, sums, err := s.series(ctx, unit, partyID, areaCode)
	if err != nil {
		return nil, err
	}
	points := make([]model.HistoryPoint, 0, len(sums))
	for _, e := range elections {
		acc, ok := sums[e.Code]
		if !ok {
			continue
		}
		points = append(points, model.HistoryPoint{
			ElectionCode: e.Code,
			ElectionType: e.Type,
			Date:         e.Date,
			Count:        acc.Count,
			Rate:         rate.Share(acc.Count, acc.TotalCount),
		})
	}
	slices.SortStableFunc(points, func(a, b model.HistoryPoint) int { return b.Date.Compare(a.Date) })
	return points, nil
}

// Changes returns the same series as History, oldest first.
func (s *Store) Changes(ctx context.Context, unit area.Unit, partyID, areaCode string) ([]model.Change, error) {
	elections, sums, err := s.series(ctx, unit, partyID, areaCode)
	if err != nil {
		return nil, err
	}
	changes := make([]model.Change, 0, len(sums))
	for _, e := range elections {
		acc, ok := sums[e.Code]
		if !ok {
			continue
		}
		changes = append(changes, model.Change{
			Election:   e,
			Count:      acc.Count,
			TotalCount: acc.TotalCount,
			Rate:       rate.Share(acc.Count, acc.TotalCount),
		})
	}
	slices.SortStableFunc(changes, func(a, b model.Change) int { return a.Election.Date.Compare(b.Election.Date) })
	return changes, nil
}

// series sums the party's facts in one area per election.
func (s *Store) series(ctx context.Context, unit area.Unit, partyID, areaCode string) ([]model.Election, map[string]*model.Fact, error) {
	codes, err := s.areaCodes(unit, areaCode)
	if err != nil {
		return nil, nil, err
	}
	facts, err := s.reader.HistoryFacts(ctx, unit, partyID, codes)
	if err != nil {
		return nil, nil, err
	}
	sums := make(map[string]*model.Fact, len(facts))
	for _, f := range facts {
		acc, ok := sums[f.ElectionCode]
		if !ok {
			acc = &model.Fact{AreaCode: areaCode}
			sums[f.ElectionCode] = acc
		}
		acc.Count += f.Count
		acc.TotalCount += f.TotalCount
	}
	elections, err := s.reader.Elections(ctx)
	if err != nil {
		return nil, nil, err
	}
	return elections, sums, nil
}

// Breakdown sums every party's facts in one area for an election, largest
// count first. total is the area's vote total over the codes that have facts.
func (s *Store) Breakdown(ctx context.Context, unit area.Unit, electionCode, areaCode string) (float64, []model.PartyTally, error) {
	codes, err := s.areaCodes(unit, areaCode)
	if err != nil {
		return 0, nil, err
	}
	facts, err := s.reader.PartyFacts(ctx, unit, electionCode, codes)
	if err != nil {
		return 0, nil, err
	}

	var (
		total   float64
		counted = make(map[string]struct{})
		sums    = make(map[string]*model.PartyTally)
	)
	for _, f := range facts {
		if _, ok := counted[f.AreaCode]; !ok {
			counted[f.AreaCode] = struct{}{}
			total += f.TotalCount
		}
		acc, ok := sums[f.PartyCode]
		if !ok {
			acc = &model.PartyTally{PartyCode: f.PartyCode, PartyName: f.PartyName}
			sums[f.PartyCode] = acc
		}
		acc.Count += f.Count
		acc.TotalCount += f.TotalCount
	}

	tallies := make([]model.PartyTally, 0, len(sums))
	for _, acc := range sums {
		acc.Rate = rate.Share(acc.Count, acc.TotalCount)
		tallies = append(tallies, *acc)
	}
	slices.SortFunc(tallies, func(a, b model.PartyTally) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		default:
			return strings.Compare(a.PartyCode, b.PartyCode)
		}
	})
	return total, tallies, nil
}

// areaCodes expands a live municipality into its lineage. Other units map
// to the code itself.
func (s *Store) areaCodes(unit area.Unit, areaCode string) ([]string, error) {
	if unit != area.UnitMunicipality {
		return []string{areaCode}, nil
	}
	if s.lineage == nil {
		return nil, ErrNoLineage
	}
	d, err := s.lineage.DescendantsOf(areaCode)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", areaCode, err)
	}
	return d, nil
}

// municipalityFacts reads raw municipality facts and folds every archived
// code into its live ancestor. With codes set, only those live codes and
// their descendants are read.
func (s *Store) municipalityFacts(ctx context.Context, electionCode, partyID string, codes []string) ([]model.Fact, error) {
	if s.lineage == nil {
		return nil, ErrNoLineage
	}

	var query []string
	if len(codes) > 0 {
		for _, c := range codes {
			d, err := s.lineage.DescendantsOf(c)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", c, err)
			}
			query = append(query, d...)
		}
	}

	raw, err := s.reader.Facts(ctx, area.UnitMunicipality, electionCode, partyID, query)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]*model.Fact)
	order := make([]string, 0)
	for _, f := range raw {
		live, err := s.lineage.LiveAncestorOf(f.AreaCode)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f.AreaCode, err)
		}
		acc, ok := sums[live]
		if !ok {
			acc = &model.Fact{AreaCode: live}
			sums[live] = acc
			order = append(order, live)
		}
		acc.Count += f.Count
		acc.TotalCount += f.TotalCount
	}

	out := make([]model.Fact, len(order))
	for i, code := range order {
		out[i] = *sums[code]
	}
	return out, nil
}

func sortByShare(facts []model.Fact) {
	slices.SortFunc(facts, func(a, b model.Fact) int {
		ra, rb := ratio(a), ratio(b)
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		default:
			return strings.Compare(a.AreaCode, b.AreaCode)
		}
	})
}

func ratio(f model.Fact) float64 {
	if f.TotalCount <= 0 {
		return 0
	}
	return f.Count / f.TotalCount
}

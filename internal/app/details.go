package service

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/internal/domain/ranking"
)

// DetailsRequest asks for a party's record in one area.
type DetailsRequest struct {
	ElectionCode string
	PartyCode    string
	Scope        area.Scope
}

// DetailsResult is a party's per-election series in one area plus, for
// prefectures and municipalities, the area's rank in the election's ranking.
type DetailsResult struct {
	Election         model.Election
	Party            model.Party
	Unit             area.Unit
	RankInNational   *model.Rank
	RankInPrefecture *model.Rank
	Changes          []model.Change
}

// Details returns the party's results in the requested area oldest first.
// A prefecture is ranked against all prefectures; a municipality against all
// municipalities and against those of its own prefecture.
func (s *Service) Details(ctx context.Context, req DetailsRequest) (DetailsResult, error) {
	if err := s.ready(); err != nil {
		return DetailsResult{}, err
	}
	if redirect := legacyRegion(req.Scope); redirect != nil {
		return DetailsResult{}, redirect
	}
	election, party, err := s.resolve(ctx, req.ElectionCode, req.PartyCode, req.Scope)
	if err != nil {
		return DetailsResult{}, err
	}

	unit, code := historyTarget(req.Scope)
	res := DetailsResult{Election: election, Party: party, Unit: unit}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Changes, err = s.votes.Changes(gctx, unit, party.ID, code)
		return err
	})
	if unit == area.UnitPrefecture || unit == area.UnitMunicipality {
		g.Go(func() error {
			keys, err := s.keys.Keys(gctx, election.Code, party.ID, unit)
			if err != nil {
				return err
			}
			res.RankInNational = rankOf(keys, code)
			if unit == area.UnitMunicipality {
				narrowing, err := ranking.NewNarrowing(req.Scope, unit, nil)
				if err != nil {
					return err
				}
				res.RankInPrefecture = rankOf(narrowing.Apply(keys), code)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DetailsResult{}, err
	}
	return res, nil
}

// rankOf returns code's position in a descending key list, or nil when the
// code is absent.
func rankOf(keys []string, code string) *model.Rank {
	i := slices.Index(keys, code)
	if i < 0 {
		return nil
	}
	return &model.Rank{Rank: i + 1, TotalRank: len(keys)}
}

// OverviewRequest asks for every party's result in one area.
type OverviewRequest struct {
	ElectionCode string
	Scope        area.Scope
}

// OverviewResult compares an election with the one held before it.
// Previous is nil for the oldest election.
type OverviewResult struct {
	Election   model.Election
	Previous   *model.Election
	Unit       area.Unit
	TotalCount float64
	Parties    []model.OverviewRow
}

// Overview lists every party's result in the requested area, largest count
// first, next to its result in the previous election.
func (s *Service) Overview(ctx context.Context, req OverviewRequest) (OverviewResult, error) {
	if err := s.ready(); err != nil {
		return OverviewResult{}, err
	}
	if redirect := legacyRegion(req.Scope); redirect != nil {
		return OverviewResult{}, redirect
	}
	election, _, err := s.resolve(ctx, req.ElectionCode, "", req.Scope)
	if err != nil {
		return OverviewResult{}, err
	}
	previous, err := s.previousElection(ctx, election)
	if err != nil {
		return OverviewResult{}, err
	}

	unit, code := historyTarget(req.Scope)
	var (
		total   float64
		current []model.PartyTally
		earlier []model.PartyTally
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, current, err = s.votes.Breakdown(gctx, unit, election.Code, code)
		return err
	})
	if previous != nil {
		g.Go(func() error {
			var err error
			_, earlier, err = s.votes.Breakdown(gctx, unit, previous.Code, code)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return OverviewResult{}, err
	}

	before := make(map[string]model.PartyTally, len(earlier))
	for _, t := range earlier {
		before[t.PartyCode] = t
	}
	rows := make([]model.OverviewRow, 0, len(current))
	for _, t := range current {
		row := model.OverviewRow{Code: t.PartyCode, Name: t.PartyName, Count: t.Count, Rate: t.Rate}
		if prev, ok := before[t.PartyCode]; ok {
			count, rate := prev.Count, prev.Rate
			row.PrevCount, row.PrevRate = &count, &rate
		}
		rows = append(rows, row)
	}
	return OverviewResult{
		Election:   election,
		Previous:   previous,
		Unit:       unit,
		TotalCount: total,
		Parties:    rows,
	}, nil
}

// previousElection returns the newest election held on or before e, other
// than e itself, regardless of its type.
func (s *Service) previousElection(ctx context.Context, e model.Election) (*model.Election, error) {
	elections, err := s.catalog.Elections(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range elections {
		if c.Code != e.Code && !c.Date.After(e.Date) {
			return &c, nil
		}
	}
	return nil, nil
}

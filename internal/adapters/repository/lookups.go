package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/partystats/internal/domain/model"
)

// NationalName is the display name of the national area.
const NationalName = "全国"

func notFound(err error, what, code string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, code)
	}
	return err
}

func scanElection(row interface{ Scan(...any) error }) (model.Election, error) {
	var (
		e      model.Election
		heldOn int64
		kind   string
	)
	if err := row.Scan(&e.Code, &e.Name, &heldOn, &e.Source, &kind); err != nil {
		return model.Election{}, err
	}
	e.Date = time.Unix(heldOn, 0).UTC()
	e.Type = model.ElectionType(kind)
	return e, nil
}

// Elections returns every election, newest first.
func (s *Store) Elections(ctx context.Context) (out []model.Election, err error) {
	defer func(start time.Time) { err = observe("elections", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, held_on, source, election_type FROM elections ORDER BY held_on DESC, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []model.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ElectionByCode looks up an election. Codes are case-insensitive.
func (s *Store) ElectionByCode(ctx context.Context, code string) (e model.Election, err error) {
	defer func(start time.Time) { err = observe("election", start, err) }(time.Now())

	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT code, name, held_on, source, election_type FROM elections WHERE code = ?`), strings.ToLower(code))
	e, err = scanElection(row)
	return e, notFound(err, "election", code)
}

// PartyByCode looks up a party. Codes are case-insensitive.
func (s *Store) PartyByCode(ctx context.Context, code string) (p model.Party, err error) {
	defer func(start time.Time) { err = observe("party", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, code, name, color FROM parties WHERE code = ?`), strings.ToLower(code)).
		Scan(&p.ID, &p.Code, &p.Name, &p.Color)
	return p, notFound(err, "party", code)
}

// PartyIDsInElection returns the parties that have votes in an election.
func (s *Store) PartyIDsInElection(ctx context.Context, electionCode string) (ids []string, err error) {
	defer func(start time.Time) { err = observe("election_parties", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT DISTINCT party_id FROM votes WHERE election_code = ? ORDER BY party_id`), electionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Region looks up a region.
func (s *Store) Region(ctx context.Context, code string) (r model.Region, err error) {
	defer func(start time.Time) { err = observe("region", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, s.rebind(`SELECT code, name FROM regions WHERE code = ?`), code).
		Scan(&r.Code, &r.Name)
	return r, notFound(err, "region", code)
}

// Prefecture looks up a prefecture.
func (s *Store) Prefecture(ctx context.Context, code string) (p model.Prefecture, err error) {
	defer func(start time.Time) { err = observe("prefecture", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT code, name, region_code FROM prefectures WHERE code = ?`), code).
		Scan(&p.Code, &p.Name, &p.RegionCode)
	return p, notFound(err, "prefecture", code)
}

// Municipality looks up a municipality, live or archived.
func (s *Store) Municipality(ctx context.Context, code string) (m model.Municipality, err error) {
	defer func(start time.Time) { err = observe("municipality", start, err) }(time.Now())

	var archived int
	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT code, name, prefecture_code, archived FROM municipalities WHERE code = ?`), code).
		Scan(&m.Code, &m.Name, &m.PrefectureCode, &archived)
	m.Archived = archived != 0
	return m, notFound(err, "municipality", code)
}

// PrefecturesInRegion returns the prefecture codes of a region.
func (s *Store) PrefecturesInRegion(ctx context.Context, regionCode string) (codes []string, err error) {
	defer func(start time.Time) { err = observe("region_prefectures", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT code FROM prefectures WHERE region_code = ? ORDER BY code`), regionCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes = []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// Municipalities returns every municipality.
func (s *Store) Municipalities(ctx context.Context) (out []model.Municipality, err error) {
	defer func(start time.Time) { err = observe("municipalities", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, name, prefecture_code, archived FROM municipalities ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []model.Municipality{}
	for rows.Next() {
		var (
			m        model.Municipality
			archived int
		)
		if err := rows.Scan(&m.Code, &m.Name, &m.PrefectureCode, &archived); err != nil {
			return nil, err
		}
		m.Archived = archived != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// LineageEdges returns the municipality closure relation.
func (s *Store) LineageEdges(ctx context.Context) (out []model.LineageEdge, err error) {
	defer func(start time.Time) { err = observe("lineage", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT ancestor, descendant FROM municipality_lineage ORDER BY ancestor, descendant`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []model.LineageEdge{}
	for rows.Next() {
		var e model.LineageEdge
		if err := rows.Scan(&e.Ancestor, &e.Descendant); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats counts the rows of the main tables.
type Stats struct {
	Elections      int64 `json:"elections"`
	Parties        int64 `json:"parties"`
	Prefectures    int64 `json:"prefectures"`
	Municipalities int64 `json:"municipalities"`
	Votes          int64 `json:"votes"`
}

// Stats returns table sizes.
func (s *Store) Stats(ctx context.Context) (st Stats, err error) {
	defer func(start time.Time) { err = observe("stats", start, err) }(time.Now())

	counts := []struct {
		table string
		dst   *int64
	}{
		{"elections", &st.Elections},
		{"parties", &st.Parties},
		{"prefectures", &st.Prefectures},
		{"municipalities", &st.Municipalities},
		{"votes", &st.Votes},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// Package repository reads and writes the election fact database.
// The same queries run on SQLite and PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
	"github.com/okian/partystats/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the SQL-backed fact database.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with driver and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrStore, err)
	}
	if driver == DriverSQLite {
		if dsn == "" || strings.Contains(dsn, ":memory:") {
			// Each connection to :memory: is a separate database.
			db.SetMaxOpenConns(1)
		} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: set WAL mode: %w", ErrStore, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrStore, err)
	}
	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStore, err)
	}
	return nil
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(codes []string) []any {
	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	return args
}

// observe records latency and failures for op and wraps err in ErrStore.
func observe(op string, start time.Time, err error) error {
	metrics.RecordStoreQuery(op, float64(time.Since(start).Milliseconds()))
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	metrics.RecordStoreError(op)
	if errors.Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

const factJoin = `FROM votes v
	JOIN vote_totals t
	  ON t.election_code = v.election_code AND t.unit = v.unit AND t.area_code = v.area_code
	WHERE v.election_code = ? AND v.party_id = ? AND v.unit = ?`

// Facts returns raw facts at unit, restricted to codes when non-empty.
func (s *Store) Facts(ctx context.Context, unit area.Unit, electionCode, partyID string, codes []string) (facts []model.Fact, err error) {
	defer func(start time.Time) { err = observe("facts", start, err) }(time.Now())

	query := `SELECT v.area_code, v.vote_count, t.total_count ` + factJoin
	args := []any{electionCode, partyID, unit.String()}
	if len(codes) > 0 {
		query += ` AND v.area_code IN (` + placeholders(len(codes)) + `)`
		args = append(args, stringArgs(codes)...)
	}
	query += ` ORDER BY v.area_code`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts = []model.Fact{}
	for rows.Next() {
		var f model.Fact
		if err := rows.Scan(&f.AreaCode, &f.Count, &f.TotalCount); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// RankedCodes orders every area at a region or prefecture unit by share.
func (s *Store) RankedCodes(ctx context.Context, unit area.Unit, electionCode, partyID string) (codes []string, err error) {
	defer func(start time.Time) { err = observe("ranked_codes", start, err) }(time.Now())

	query := `SELECT v.area_code ` + factJoin + `
	ORDER BY CASE WHEN t.total_count > 0 THEN v.vote_count / t.total_count ELSE 0 END DESC, v.area_code ASC`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), electionCode, partyID, unit.String())
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

// AreaNames returns display fields for codes at unit. Municipalities carry
// their prefecture name as support text.
func (s *Store) AreaNames(ctx context.Context, unit area.Unit, codes []string) (names []model.AreaName, err error) {
	defer func(start time.Time) { err = observe("area_names", start, err) }(time.Now())

	if len(codes) == 0 {
		return []model.AreaName{}, nil
	}
	var query string
	switch unit {
	case area.UnitNational:
		return []model.AreaName{{Code: area.NationalAreaCode, Name: NationalName}}, nil
	case area.UnitRegion:
		query = `SELECT code, name, '' FROM regions WHERE code IN (`
	case area.UnitPrefecture:
		query = `SELECT code, name, '' FROM prefectures WHERE code IN (`
	case area.UnitMunicipality:
		query = `SELECT m.code, m.name, COALESCE(p.name, '') FROM municipalities m
			LEFT JOIN prefectures p ON p.code = m.prefecture_code WHERE m.code IN (`
	default:
		return nil, fmt.Errorf("%w: %s", area.ErrInvalidUnit, unit)
	}
	query += placeholders(len(codes)) + `)`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), stringArgs(codes)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names = make([]model.AreaName, 0, len(codes))
	for rows.Next() {
		var n model.AreaName
		if err := rows.Scan(&n.Code, &n.Name, &n.SupportText); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// HistoryFacts returns facts for codes at unit across every election.
func (s *Store) HistoryFacts(ctx context.Context, unit area.Unit, partyID string, codes []string) (facts []model.ElectionFact, err error) {
	defer func(start time.Time) { err = observe("history_facts", start, err) }(time.Now())

	if len(codes) == 0 {
		return []model.ElectionFact{}, nil
	}
	query := `SELECT v.election_code, v.area_code, v.vote_count, t.total_count FROM votes v
	JOIN vote_totals t
	  ON t.election_code = v.election_code AND t.unit = v.unit AND t.area_code = v.area_code
	WHERE v.party_id = ? AND v.unit = ? AND v.area_code IN (` + placeholders(len(codes)) + `)
	ORDER BY v.election_code, v.area_code`
	args := append([]any{partyID, unit.String()}, stringArgs(codes)...)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts = []model.ElectionFact{}
	for rows.Next() {
		var f model.ElectionFact
		if err := rows.Scan(&f.ElectionCode, &f.AreaCode, &f.Count, &f.TotalCount); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// PartyFacts returns every party's facts for codes at unit in one election.
func (s *Store) PartyFacts(ctx context.Context, unit area.Unit, electionCode string, codes []string) (facts []model.PartyFact, err error) {
	defer func(start time.Time) { err = observe("party_facts", start, err) }(time.Now())

	if len(codes) == 0 {
		return []model.PartyFact{}, nil
	}
	query := `SELECT p.id, p.code, p.name, v.area_code, v.vote_count, t.total_count FROM votes v
	JOIN vote_totals t
	  ON t.election_code = v.election_code AND t.unit = v.unit AND t.area_code = v.area_code
	JOIN parties p ON p.id = v.party_id
	WHERE v.election_code = ? AND v.unit = ? AND v.area_code IN (` + placeholders(len(codes)) + `)
	ORDER BY p.code, v.area_code`
	args := append([]any{electionCode, unit.String()}, stringArgs(codes)...)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facts = []model.PartyFact{}
	for rows.Next() {
		var f model.PartyFact
		if err := rows.Scan(&f.PartyID, &f.PartyCode, &f.PartyName, &f.AreaCode, &f.Count, &f.TotalCount); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/partystats/internal/domain/area"
	"github.com/okian/partystats/internal/domain/model"
)

// Dataset is the YAML document loaded by Import.
type Dataset struct {
	Elections []struct {
		Code   string    `yaml:"code"`
		Name   string    `yaml:"name"`
		Date   time.Time `yaml:"date"`
		Source string    `yaml:"source"`
		Type   string    `yaml:"type"`
	} `yaml:"elections"`
	Parties []struct {
		ID    string `yaml:"id"`
		Code  string `yaml:"code"`
		Name  string `yaml:"name"`
		Color string `yaml:"color"`
	} `yaml:"parties"`
	Regions []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"regions"`
	Prefectures []struct {
		Code   string `yaml:"code"`
		Name   string `yaml:"name"`
		Region string `yaml:"region"`
	} `yaml:"prefectures"`
	Municipalities []struct {
		Code       string `yaml:"code"`
		Name       string `yaml:"name"`
		Prefecture string `yaml:"prefecture"`
		Archived   bool   `yaml:"archived"`
	} `yaml:"municipalities"`
	Lineage []struct {
		Ancestor   string `yaml:"ancestor"`
		Descendant string `yaml:"descendant"`
	} `yaml:"lineage"`
	Totals []struct {
		Election string  `yaml:"election"`
		Unit     string  `yaml:"unit"`
		Area     string  `yaml:"area"`
		Total    float64 `yaml:"total"`
	} `yaml:"totals"`
	Votes []struct {
		Election string  `yaml:"election"`
		Party    string  `yaml:"party"`
		Unit     string  `yaml:"unit"`
		Area     string  `yaml:"area"`
		Count    float64 `yaml:"count"`
	} `yaml:"votes"`
}

// DecodeDataset parses a YAML dataset. Unknown fields are rejected.
func DecodeDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return Dataset{}, fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return ds, nil
}

// ImportSummary counts what Import wrote.
type ImportSummary struct {
	Elections      int
	Parties        int
	Municipalities int
	LineageEdges   int
	Facts          int
}

func (ds *Dataset) municipalities() []model.Municipality {
	out := make([]model.Municipality, len(ds.Municipalities))
	for i, m := range ds.Municipalities {
		out[i] = model.Municipality{Code: m.Code, Name: m.Name, PrefectureCode: m.Prefecture, Archived: m.Archived}
	}
	return out
}

// lineage returns the dataset edges plus a self-edge for every live municipality.
func (ds *Dataset) lineage() []model.LineageEdge {
	out := make([]model.LineageEdge, 0, len(ds.Lineage)+len(ds.Municipalities))
	for _, m := range ds.Municipalities {
		if !m.Archived {
			out = append(out, model.LineageEdge{Ancestor: m.Code, Descendant: m.Code})
		}
	}
	for _, e := range ds.Lineage {
		out = append(out, model.LineageEdge{Ancestor: e.Ancestor, Descendant: e.Descendant})
	}
	return out
}

// Validate checks the dataset without touching the database.
func (ds *Dataset) Validate() error {
	for _, e := range ds.Elections {
		if e.Code == "" || !model.ElectionType(e.Type).Valid() {
			return fmt.Errorf("%w: election %q has type %q", ErrInvalidDataset, e.Code, e.Type)
		}
	}
	for _, p := range ds.Parties {
		if p.ID == "" || p.Code == "" {
			return fmt.Errorf("%w: party needs id and code", ErrInvalidDataset)
		}
	}
	for _, t := range ds.Totals {
		if _, err := area.ParseUnit(t.Unit); err != nil {
			return fmt.Errorf("%w: total for %s: unit %q", ErrInvalidDataset, t.Area, t.Unit)
		}
	}
	for _, v := range ds.Votes {
		if _, err := area.ParseUnit(v.Unit); err != nil {
			return fmt.Errorf("%w: vote for %s: unit %q", ErrInvalidDataset, v.Area, v.Unit)
		}
	}
	if _, err := area.NewLineage(ds.municipalities(), ds.lineage()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDataset, err)
	}
	return nil
}

func unitName(raw string) string {
	u, _ := area.ParseUnit(raw)
	return u.String()
}

// Import validates ds and writes it in one transaction. Existing rows are kept.
func (s *Store) Import(ctx context.Context, ds *Dataset) (sum ImportSummary, err error) {
	defer func(start time.Time) { err = observe("import", start, err) }(time.Now())

	if err := ds.Validate(); err != nil {
		return ImportSummary{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, s.rebind(query), args...)
		return err
	}

	for _, e := range ds.Elections {
		if err = exec(`INSERT INTO elections (code, name, held_on, source, election_type) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			strings.ToLower(e.Code), e.Name, e.Date.Unix(), e.Source, e.Type); err != nil {
			return ImportSummary{}, err
		}
	}
	sum.Elections = len(ds.Elections)

	for _, p := range ds.Parties {
		if err = exec(`INSERT INTO parties (id, code, name, color) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			p.ID, strings.ToLower(p.Code), p.Name, p.Color); err != nil {
			return ImportSummary{}, err
		}
	}
	sum.Parties = len(ds.Parties)

	for _, r := range ds.Regions {
		if err = exec(`INSERT INTO regions (code, name) VALUES (?, ?) ON CONFLICT DO NOTHING`, r.Code, r.Name); err != nil {
			return ImportSummary{}, err
		}
	}
	for _, p := range ds.Prefectures {
		if err = exec(`INSERT INTO prefectures (code, name, region_code) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			p.Code, p.Name, p.Region); err != nil {
			return ImportSummary{}, err
		}
	}

	for _, m := range ds.Municipalities {
		archived := 0
		if m.Archived {
			archived = 1
		}
		if err = exec(`INSERT INTO municipalities (code, name, prefecture_code, archived) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			m.Code, m.Name, m.Prefecture, archived); err != nil {
			return ImportSummary{}, err
		}
	}
	sum.Municipalities = len(ds.Municipalities)

	edges := ds.lineage()
	for _, e := range edges {
		if err = exec(`INSERT INTO municipality_lineage (ancestor, descendant) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			e.Ancestor, e.Descendant); err != nil {
			return ImportSummary{}, err
		}
	}
	sum.LineageEdges = len(edges)

	for _, t := range ds.Totals {
		if err = exec(`INSERT INTO vote_totals (election_code, unit, area_code, total_count) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			strings.ToLower(t.Election), unitName(t.Unit), t.Area, t.Total); err != nil {
			return ImportSummary{}, err
		}
	}
	for _, v := range ds.Votes {
		if err = exec(`INSERT INTO votes (election_code, party_id, unit, area_code, vote_count) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
			strings.ToLower(v.Election), v.Party, unitName(v.Unit), v.Area, v.Count); err != nil {
			return ImportSummary{}, err
		}
	}
	sum.Facts = len(ds.Votes)

	if err = tx.Commit(); err != nil {
		return ImportSummary{}, err
	}
	return sum, nil
}


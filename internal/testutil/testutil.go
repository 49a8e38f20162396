// Package testutil provides a small election dataset loaded into an
// in-memory SQLite database for tests.
//
// Shugiin 2024 shares for party "ldp":
//
//	regions      1 .3000, 2 .2333, 3 .2089
//	prefectures  010006 .3000, 020001 .3000, 110001 .2666, 120005 .2000, 030007 .1800, 130001 .1763
//	cities       13103 .45, 11201 .35, 01100 .30, 02201 .30, 11100 .25, 12100 .20, 13101 .20, 03201 .18, 13104 .13
//
// 13102 is archived and merged into 13101.
package testutil

import (
	"bytes"
	"context"
	_ "embed"
	"testing"

	"github.com/okian/partystats/internal/adapters/repository"
)

//go:embed dataset.yaml
var datasetYAML []byte

// DatasetYAML returns the raw fixture.
func DatasetYAML() []byte {
	return bytes.Clone(datasetYAML)
}

// Dataset decodes the fixture.
func Dataset(t testing.TB) *repository.Dataset {
	t.Helper()
	ds, err := repository.DecodeDataset(bytes.NewReader(datasetYAML))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return &ds
}

// OpenStore returns a fresh in-memory store holding the fixture.
func OpenStore(t testing.TB) *repository.Store {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, err := store.Import(ctx, Dataset(t)); err != nil {
		t.Fatalf("import fixture: %v", err)
	}
	return store
}

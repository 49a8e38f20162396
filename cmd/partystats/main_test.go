package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/partystats/internal/adapters/cache"
	service "github.com/okian/partystats/internal/app"
	"github.com/okian/partystats/internal/testutil"
	"github.com/okian/partystats/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		root := newRootCmd()

		convey.Convey("Then serve, import and warm are registered", func() {
			names := map[string]bool{}
			for _, c := range root.Commands() {
				names[c.Name()] = true
			}
			convey.So(names["serve"], convey.ShouldBeTrue)
			convey.So(names["import"], convey.ShouldBeTrue)
			convey.So(names["warm"], convey.ShouldBeTrue)
		})

		convey.Convey("Then import requires exactly one file", func() {
			_, err := run(context.Background(), "import")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestImportAndWarm(t *testing.T) {
	convey.Convey("Given file-backed fact and cache databases", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		dataset := filepath.Join(dir, "dataset.yaml")
		convey.So(os.WriteFile(dataset, testutil.DatasetYAML(), 0o600), convey.ShouldBeNil)
		cacheDSN := filepath.Join(dir, "cache.db")

		_ = os.Setenv("PARTYSTATS_DATABASE_DSN", filepath.Join(dir, "facts.db"))
		_ = os.Setenv("PARTYSTATS_CACHE_BACKEND", "sqlite")
		_ = os.Setenv("PARTYSTATS_CACHE_DSN", cacheDSN)
		_ = os.Setenv("PARTYSTATS_WARM_WORKERS", "2")
		defer func() {
			for _, k := range []string{"PARTYSTATS_DATABASE_DSN", "PARTYSTATS_CACHE_BACKEND", "PARTYSTATS_CACHE_DSN", "PARTYSTATS_WARM_WORKERS"} {
				_ = os.Unsetenv(k)
			}
		}()

		convey.Convey("When the dataset is imported and the cache warmed", func() {
			out, err := run(ctx, "import", dataset)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "2 elections")
			convey.So(out, convey.ShouldContainSubstring, "10 municipalities")

			out, err = run(ctx, "warm")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every key list is persisted", func() {
				convey.So(out, convey.ShouldContainSubstring, "purged 0 expired entries")
				convey.So(out, convey.ShouldContainSubstring, "warmed 9 key lists")
				kv, err := cache.OpenSQLite(cacheDSN)
				convey.So(err, convey.ShouldBeNil)
				defer kv.Close()
				n, err := kv.Len(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When the dataset file is missing", func() {
			_, err := run(ctx, "import", filepath.Join(dir, "missing.yaml"))
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the serve handler over the fixture", t, func() {
		ctx := context.Background()
		svc := service.New(testutil.OpenStore(t), cache.NewMemory())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		h := newHandler(ctx, svc)

		convey.Convey("Then the API and its docs are both mounted", func() {
			for _, path := range []string{
				"/healthz",
				"/api-docs",
				"/openapi.yaml",
				"/elections/shugiin-2024/ranking/parties/ldp/national",
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pmezard/go-difflib/difflib"

	. "github.com/trezcool/mergington/apps/api/echo"
	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/services/email"
	"github.com/trezcool/mergington/services/metrics"
	"github.com/trezcool/mergington/storage/database/sqlxrepos"
	"github.com/trezcool/mergington/testutil"
)

type httpErr struct {
	Detail interface{} `json:"detail"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
	extra    interface{}
}

type testApp struct {
	Server
	conf      *core.Config
	mailSvc   *emailsvc.ConsoleService
	publisher *testutil.PublisherMock
	metrics   *metricsvc.Collector
	db        *sqlx.DB // nil unless set up withSQLite
}

type setupOptions struct {
	conf     *core.Config
	sqlite   bool
	wrapRepo func(activity.Repository) activity.Repository
}

type setupOption func(o *setupOptions)

func withRateLimit(perSecond float64, burst int) setupOption {
	return func(o *setupOptions) {
		o.conf.RateLimit = core.RateLimitConfig{SignupsPerSecond: perSecond, Burst: burst}
	}
}

// withSQLite backs the server with a migrated sqlite database instead of the memory store.
func withSQLite() setupOption {
	return func(o *setupOptions) {
		o.sqlite = true
	}
}

func withRepository(wrap func(activity.Repository) activity.Repository) setupOption {
	return func(o *setupOptions) {
		o.wrapRepo = wrap
	}
}

// setup returns a server backed by a fresh in-memory store seeded with the default catalog.
func setup(t *testing.T, opts ...setupOption) testApp {
	o := setupOptions{conf: testutil.NewConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	conf := o.conf
	logger := testutil.NewLogger()
	validate, translator := core.NewValidator()

	var (
		store *shared.Store
		db    *sqlx.DB
		repo  activity.Repository
	)
	if o.sqlite {
		db = testutil.OpenSQLite(t)
		store = &shared.Store{Repo: sqlxrepos.NewActivityRepository(db), DB: db}
		if err := store.Repo.Seed(context.Background(), testutil.DefaultActivities(t)); err != nil {
			t.Fatalf("setup(): %v", err)
		}
		repo = store.Repo
	} else {
		repo = testutil.NewMemoryRepository(t, testutil.DefaultActivities(t))
	}
	if o.wrapRepo != nil {
		repo = o.wrapRepo(repo)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.EmailTemplates(t), logger)
	publisher := new(testutil.PublisherMock)
	metrics := metricsvc.NewCollector("mergington")
	svc := activity.NewServiceMock(repo, mailSvc, publisher, metrics, logger)

	deps := ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Metrics:     metrics,
		ActivitySvc: svc,
		Validate:    validate,
		Translator:  translator,
	}
	if store != nil {
		deps.Store = store
	}
	srv := NewServer(deps)
	t.Cleanup(func() { _ = srv.Close() })

	return testApp{
		Server:    srv,
		conf:      conf,
		mailSvc:   mailSvc,
		publisher: publisher,
		metrics:   metrics,
		db:        db,
	}
}



func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app testApp) do(method, path string) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path)
	app.ServeHTTP(rec, req)
	return rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// jsonDiff returns a unified diff of the indented JSON documents.
func jsonDiff(got, want []byte) string {
	indent := func(b []byte) []string {
		var buf bytes.Buffer
		if err := json.Indent(&buf, b, "", "  "); err != nil {
			return difflib.SplitLines(string(b))
		}
		return difflib.SplitLines(buf.String())
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        indent(want),
		B:        indent(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return strings.TrimSpace(diff)
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		return
	}
	if !ok {
		t.Errorf("failed! data differs:\n%s", jsonDiff(rec.Body.Bytes(), tt.wantData))
	}
}

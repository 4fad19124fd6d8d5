package testutil

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/fs"
	"github.com/trezcool/mergington/services/logger"
	"github.com/trezcool/mergington/storage/database"
	"github.com/trezcool/mergington/storage/database/inmem"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		Build:    "test",
		AppName:  "Mergington High School",
		TestMode: true,
		LogLevel: "debug",
		Server: core.ServerConfig{
			Address:         ":0",
			DisableReqLogs:  true,
			ShutdownTimeout: time.Second,
		},
		Store: core.StoreConfig{Engine: core.EngineMemory, AutoMigrate: true},
		Email: core.EmailConfig{
			DefaultFrom: "Mergington High School <noreply@mergington.edu>",
			Disabled:    true,
		},
		Kafka:     core.KafkaConfig{Topic: activity.EventParticipantJoined},
		RateLimit: core.RateLimitConfig{Burst: 10},
	}
}

// NewLogger returns a logger discarding everything.
func NewLogger() *logsvc.ConsoleLogger {
	l, _ := logsvc.NewConsoleLogger(io.Discard, "test", "debug", false)
	return l
}

// EmailTemplates parses the embedded email templates.
func EmailTemplates(t testing.TB) *core.EmailTemplates {
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true)
	if err != nil {
		t.Fatalf("EmailTemplates(): %v", err)
	}
	return tmpls
}

// DefaultActivities returns the embedded catalog.
func DefaultActivities(t testing.TB) []activity.Activity {
	validate, _ := core.NewValidator()
	activities, err := activity.LoadCatalogFile("", appfs.FS, appfs.CatalogPath, validate)
	if err != nil {
		t.Fatalf("DefaultActivities(): %v", err)
	}
	return activities
}

// NewMemoryRepository returns an in-memory repository seeded with `activities`.
func NewMemoryRepository(t testing.TB, activities []activity.Activity) activity.Repository {
	repo := inmemdb.NewActivityRepository(inmemdb.Open())
	if err := repo.Seed(context.Background(), activities); err != nil {
		t.Fatalf("NewMemoryRepository(): %v", err)
	}
	return repo
}

// OpenSQLite opens a migrated sqlite database in a temporary directory, closed at the end of the test.
func OpenSQLite(t testing.TB) *sqlx.DB {
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := database.Open(core.StoreConfig{Engine: core.EngineSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("OpenSQLite(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, core.EngineSQLite); err != nil {
		t.Fatalf("OpenSQLite(): %v", err)
	}
	return db
}

// PublisherMock records the published events.
type PublisherMock struct {
	mu     sync.Mutex
	events []activity.ParticipantJoined
	Err    error
}

var _ activity.EventPublisher = (*PublisherMock)(nil)

func (p *PublisherMock) PublishParticipantJoined(_ context.Context, evt activity.ParticipantJoined) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *PublisherMock) Events() []activity.ParticipantJoined {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]activity.ParticipantJoined, len(p.events))
	copy(events, p.events)
	return events
}

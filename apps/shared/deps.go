// Package shared builds the dependencies common to the API and admin processes.
package shared

import (
	"context"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/fs"
	"github.com/trezcool/mergington/services/email"
	"github.com/trezcool/mergington/services/events"
	"github.com/trezcool/mergington/services/logger"
	"github.com/trezcool/mergington/storage/database"
	"github.com/trezcool/mergington/storage/database/inmem"
	"github.com/trezcool/mergington/storage/database/sqlxrepos"
)

// Store is an activity repository and the resources behind it.
type Store struct {
	Repo activity.Repository
	DB   *sqlx.DB // nil for the memory engine
}

// Ping checks that the database is still reachable. The memory engine always is.
func (s *Store) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewLogger returns a console logger, reporting to Rollbar outside of DEV & TEST.
func NewLogger(conf *core.Config, component string) (core.Logger, *logsvc.ConsoleLogger, error) {
	console, err := logsvc.NewConsoleLogger(os.Stdout, component, conf.LogLevel, conf.Debug)
	if err != nil {
		return nil, nil, err
	}
	if conf.RollbarToken == "" {
		return console, console, nil
	}

	host, _ := os.Hostname()
	logger := logsvc.NewRollbarLogger(console, conf, host)
	logger.Enable(!(conf.Debug || conf.TestMode))
	return logger, console, nil
}

// OpenStore opens the configured store, migrating SQL databases when store.autoMigrate is set.
func OpenStore(conf *core.Config) (*Store, error) {
	if conf.Store.Engine == core.EngineMemory {
		return &Store{Repo: inmemdb.NewActivityRepository(inmemdb.Open())}, nil
	}

	db, err := database.Open(conf.Store)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Store.AutoMigrate {
		if err = database.Migrate(db, conf.Store.Engine); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
	}
	return &Store{Repo: sqlxrepos.NewActivityRepository(db), DB: db}, nil
}

// LoadCatalog loads catalogFile, or the embedded catalog when it is not set.
func LoadCatalog(conf *core.Config, validate *validator.Validate) ([]activity.Activity, error) {
	return activity.LoadCatalogFile(conf.CatalogFile, appfs.FS, appfs.CatalogPath, validate)
}

// NewEmailService picks the email backend: none when disabled, the console in debug, SendGrid otherwise.
func NewEmailService(conf *core.Config, out io.Writer, logger core.Logger) (core.EmailService, error) {
	if conf.Email.Disabled {
		return emailsvc.NoopService{}, nil
	}
	templates, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, true)
	if err != nil {
		return nil, errors.Wrap(err, "parsing email templates")
	}
	if conf.Debug || conf.Email.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, templates, out, logger), nil
	}
	return emailsvc.NewSendgridService(conf, templates, logger), nil
}

// NewEventPublisher publishes to Kafka when brokers are configured. closeFn must be called on shutdown.
func NewEventPublisher(conf *core.Config) (publisher activity.EventPublisher, closeFn func() error) {
	if len(conf.Kafka.Brokers) == 0 {
		return eventsvc.NoopPublisher{}, func() error { return nil }
	}
	p := eventsvc.NewKafkaPublisher(conf.Kafka.Brokers, conf.Kafka.Topic)
	return p, p.Close
}

package database

import (
	"database/sql"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/fs"
)

var ErrUnsupportedEngine = errors.New("unsupported database engine")

// driverName maps a store engine to its database/sql driver.
func driverName(engine string) (string, error) {
	switch engine {
	case core.EnginePostgres:
		return "postgres", nil
	case core.EngineSQLite:
		return "sqlite", nil
	}
	return "", errors.Wrap(ErrUnsupportedEngine, engine)
}

// Open opens the database of the configured SQL store and waits for it to be ready.
func Open(conf core.StoreConfig) (*sqlx.DB, error) {
	driver, err := driverName(conf.Engine)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Engine == core.EngineSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	// sqlx picks the bind type ($1 vs ?) from the driver name
	bindName := driver
	if conf.Engine == core.EngineSQLite {
		bindName = "sqlite3"
	}
	return sqlx.NewDb(db, bindName), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 20
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// NewMigrator returns a migrate instance applying the embedded migrations to `db`.
func NewMigrator(db *sqlx.DB, engine string) (*migrate.Migrate, error) {
	source, err := iofs.New(appfs.FS, appfs.MigrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "creating migration source")
	}

	var driver migratedb.Driver
	switch engine {
	case core.EnginePostgres:
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case core.EngineSQLite:
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		err = errors.Wrap(ErrUnsupportedEngine, engine)
	}
	if err != nil {
		return nil, errors.Wrap(err, "creating migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, engine, driver)
	if err != nil {
		return nil, errors.Wrap(err, "creating migrator")
	}
	return m, nil
}

// Migrate applies every pending migration. It is a no-op when the schema is up to date.
func Migrate(db *sqlx.DB, engine string) error {
	m, err := NewMigrator(db, engine)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "running migrations")
	}
	return nil
}

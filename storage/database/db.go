// Package database opens, provisions and migrates the PostgreSQL database.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/ozgesheedu/ozgeshe/core"
	appfs "github.com/ozgesheedu/ozgeshe/fs"
)

const (
	migrationsDir = "migrations"
	maintenanceDB = "postgres"

	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 30 * time.Second
)

// dsn builds the connection URL of `dbName`, as the admin role when `admin` is set.
func dsn(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// connect opens `dbName` and waits until it answers.
func connect(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(conf.Database.Engine, dsn(dbName, admin, conf))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "connecting to %s", dbName)
	}
	return db, nil
}

// waitReady pings until the database answers, waiting 100ms longer after each failure.
func waitReady(ctx context.Context, db *sqlx.DB) error {
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(err, "DB ping timeout")
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
}

// Open connects to the application database.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := connect(conf.Database.Name, false, conf)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// CreateIfNotExist provisions the application role (through the admin role) and the
// application database (owned by the application role).
func CreateIfNotExist(conf *core.Config) error {
	admin, err := connect(maintenanceDB, true, conf)
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	if conf.Database.User != "" {
		exists, err := found(admin, `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !exists {
			q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
				" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
			if _, err = admin.Exec(q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	app, err := connect(maintenanceDB, false, conf)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	exists, err := found(app, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !exists {
		if _, err = app.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func found(db *sqlx.DB, query string, arg string) (bool, error) {
	var exists bool
	err := db.Get(&exists, query, arg)
	return exists, err
}

// Migrate applies the embedded migrations that are not applied yet.
func Migrate(db *sql.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command ("up", "down", "status", "redo"...) on the embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	if err := goose.RunFS(command, db, appfs.FS, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %s", command)
	}
	return nil
}

package mysql

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type DSN struct {
	Host     string
	User     string
	Password string
	Name     string
}

// String renders the driver DSN. Affected-row counts report matched rows so
// that idempotent updates can tell "already in that state" from "no such row".
func (d DSN) String() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = d.Host
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

const (
	connectAttempts = 10
	connectDelay    = 3 * time.Second
)

// Open connects and pings, retrying while the database is still starting.
func Open(ctx context.Context, dsn DSN) (*sqlx.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sqlx.Open("mysql", dsn.String())
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				db.SetMaxOpenConns(20)
				db.SetMaxIdleConns(10)
				db.SetConnMaxLifetime(5 * time.Minute)
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err
		log.WithError(err).WithFields(log.Fields{"attempt": attempt, "host": dsn.Host}).Warn("database not reachable yet")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectDelay):
		}
	}
	return nil, errors.Wrapf(lastErr, "failed to connect to %s after %d attempts", dsn.Host, connectAttempts)
}

const errDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry
}

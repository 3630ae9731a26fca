package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

const postgresConnectTimeout = 3 * time.Second

// NewPostgres parses dsn with pgx, opens a database/sql pool over it and
// checks connectivity. The caller owns the returned pool.
func NewPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres: empty DSN")
	}
	pc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse DSN: %w", err)
	}
	if pc.ConnectTimeout == 0 {
		pc.ConnectTimeout = postgresConnectTimeout
	}
	if pc.RuntimeParams["application_name"] == "" {
		pc.RuntimeParams["application_name"] = "contacts-service"
	}

	db := stdlib.OpenDB(*pc)
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), postgresConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping %s:%d: %w", pc.Host, pc.Port, err)
	}
	return db, nil
}

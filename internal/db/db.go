// internal/db/db.go
package db

import (
    "context"
    "database/sql"
    _ "embed"
    "fmt"
    "time"

    _ "github.com/lib/pq"

    "github.com/unclebandit/crm-backend/internal/logger"
)

//go:embed schema.sql
var schema string

var DB *sql.DB

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
    conn, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, fmt.Errorf("open db: %w", err)
    }
    conn.SetMaxOpenConns(25)
    conn.SetMaxIdleConns(5)
    conn.SetConnMaxLifetime(30 * time.Minute)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := conn.PingContext(ctx); err != nil {
        conn.Close()
        return nil, fmt.Errorf("ping db: %w", err)
    }
    return conn, nil
}

// Init opens the process-wide connection and applies the schema.
func Init(dsn string) error {
    conn, err := Open(dsn)
    if err != nil {
        return err
    }
    if err := Migrate(context.Background(), conn); err != nil {
        conn.Close()
        return err
    }
    DB = conn
    logger.L().Infow("db_connected")
    return nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, conn *sql.DB) error {
    if _, err := conn.ExecContext(ctx, schema); err != nil {
        return fmt.Errorf("migrate: %w", err)
    }
    return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// EphemeralPostgres wraps a throwaway PostgreSQL server for development and
// tests. Everything is destroyed on Cleanup.
type EphemeralPostgres struct {
	DB     *sql.DB
	server *postgrestest.Server
}

// SetupEphemeralPostgresDatabase creates an ephemeral PostgreSQL instance
func SetupEphemeralPostgresDatabase() (*EphemeralPostgres, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	ctx := context.Background()

	// Uses a temporary directory by default for simplicity
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	// Create a new database for the application
	dsn, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to create goslides database: %w", err)
	}

	Logger.Info("Created ephemeral database", "dsn", dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to open goslides database: %w", err)
	}

	if err := db.Ping(); err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")

	return &EphemeralPostgres{
		DB:     db,
		server: pgt,
	}, nil
}

// Cleanup shuts down the ephemeral server and removes its data
func (e *EphemeralPostgres) Cleanup() {
	if e.server != nil {
		e.server.Cleanup()
		e.server = nil
	}
}

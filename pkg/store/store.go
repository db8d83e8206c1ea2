// Package store is the Postgres spec catalog: raw OpenAPI specifications
// with their mount paths and credentials. The catalog persists spec text
// only; generated tool servers are rebuilt from it on every load.
package store

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Store wraps the catalog database connection.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection, and runs migrations.
func Open(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return nil, fmt.Errorf("database URL must be a PostgreSQL connection string")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	log.Printf("Database connected: %s@[HIDDEN]", strings.Split(databaseURL, "@")[0])

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS spec_catalog (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		title VARCHAR(500),
		version VARCHAR(100),
		spec_content TEXT NOT NULL,
		endpoint_path VARCHAR(255) UNIQUE NOT NULL,
		file_format VARCHAR(10) DEFAULT 'yaml',
		auth_type VARCHAR(20),
		credential VARCHAR(1000),
		is_active BOOLEAN DEFAULT true,
		created_at TIMESTAMP(6) DEFAULT NOW(),
		updated_at TIMESTAMP(6) DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_spec_catalog_endpoint_path ON spec_catalog(endpoint_path);
	CREATE INDEX IF NOT EXISTS idx_spec_catalog_is_active ON spec_catalog(is_active);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create spec_catalog table: %w", err)
	}
	log.Println("Catalog migrations completed")
	return nil
}

package store

import (
	"database/sql"
	"fmt"
)

const recordColumns = "id, name, title, version, spec_content, endpoint_path, file_format, auth_type, credential, is_active, created_at, updated_at"

// Create inserts a new spec record.
func (s *Store) Create(rec *SpecRecord) (*SpecRecord, error) {
	query := `
		INSERT INTO spec_catalog (name, title, version, spec_content, endpoint_path, file_format, auth_type, credential, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRow(
		query,
		rec.Name,
		rec.Title,
		rec.Version,
		rec.SpecContent,
		rec.EndpointPath,
		rec.FileFormat,
		rec.AuthType,
		rec.Credential,
		rec.IsActive,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create spec record: %w", err)
	}
	return rec, nil
}

// GetByID retrieves one spec record.
func (s *Store) GetByID(id int) (*SpecRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM spec_catalog WHERE id = $1", recordColumns)
	rec, err := scanRecord(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("spec record with id %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spec record: %w", err)
	}
	return rec, nil
}

// GetAll returns every record in the catalog.
func (s *Store) GetAll() ([]*SpecRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM spec_catalog ORDER BY name", recordColumns)
	return s.query(query)
}

// GetActive returns the records whose generated servers should be mounted.
func (s *Store) GetActive() ([]*SpecRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM spec_catalog WHERE is_active = true ORDER BY name", recordColumns)
	return s.query(query)
}

// SetActive flips a record's active flag.
func (s *Store) SetActive(id int, active bool) error {
	result, err := s.db.Exec("UPDATE spec_catalog SET is_active = $1, updated_at = NOW() WHERE id = $2", active, id)
	if err != nil {
		return fmt.Errorf("failed to update spec record: %w", err)
	}
	return checkAffected(result, id)
}

// SetCredential updates a record's auth type and credential material.
func (s *Store) SetCredential(id int, authType, credential *string) error {
	result, err := s.db.Exec(
		"UPDATE spec_catalog SET auth_type = $1, credential = $2, updated_at = NOW() WHERE id = $3",
		authType, credential, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return checkAffected(result, id)
}

// Delete removes a record from the catalog.
func (s *Store) Delete(id int) error {
	result, err := s.db.Exec("DELETE FROM spec_catalog WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete spec record: %w", err)
	}
	return checkAffected(result, id)
}

func (s *Store) query(query string, args ...any) ([]*SpecRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spec catalog: %w", err)
	}
	defer rows.Close()

	var out []*SpecRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spec record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*SpecRecord, error) {
	rec := &SpecRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Title,
		&rec.Version,
		&rec.SpecContent,
		&rec.EndpointPath,
		&rec.FileFormat,
		&rec.AuthType,
		&rec.Credential,
		&rec.IsActive,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func checkAffected(result sql.Result, id int) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("spec record with id %d not found", id)
	}
	return nil
}

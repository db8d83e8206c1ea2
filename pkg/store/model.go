package store

import "time"

// SpecRecord is one row of the spec catalog: a named raw specification, the
// endpoint path its generated server mounts at, and the credential material
// its outbound calls authenticate with. Only raw spec text is persisted;
// tool servers are regenerated from it on every load.
type SpecRecord struct {
	ID           int
	Name         string
	Title        *string
	Version      *string
	SpecContent  string
	EndpointPath string
	FileFormat   *string
	AuthType     *string
	Credential   *string
	IsActive     bool
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// NewSpecRecord creates a record with the catalog's defaults.
func NewSpecRecord(name, specContent, endpointPath string) *SpecRecord {
	format := "yaml"
	return &SpecRecord{
		Name:         name,
		SpecContent:  specContent,
		EndpointPath: endpointPath,
		FileFormat:   &format,
		IsActive:     true,
	}
}

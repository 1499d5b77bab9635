package repository

import (
	"database/sql"

	"asset-pipeline/core/models"
)

// BinRepository handles database operations for bins
type BinRepository struct {
	db *DB
}

// NewBinRepository creates a new bin repository
func NewBinRepository(db *DB) *BinRepository {
	return &BinRepository{db: db}
}

// CreateBin inserts a new bin version. The version is allocated as one past
// the highest existing version for the uuid, starting at 1; the (uuid, version)
// pair is unique and immutable once created.
func (r *BinRepository) CreateBin(bin *models.Bin) error {
	query := `
		INSERT INTO bins (uuid, version, name, description, type, item_pk, job_pk, created_at)
		VALUES ($1, COALESCE((SELECT MAX(version) FROM bins WHERE uuid = $1), 0) + 1, $2, $3, $4, $5, $6, NOW())
		RETURNING pk, version, created_at
	`
	return r.db.QueryRow(query,
		bin.UUID,
		bin.Name,
		bin.Description,
		bin.Type,
		bin.ItemPK,
		bin.JobPK,
	).Scan(&bin.PK, &bin.Version, &bin.CreatedAt)
}

// GetBin retrieves a bin by internal primary key
func (r *BinRepository) GetBin(pk int64) (*models.Bin, error) {
	query := `
		SELECT pk, uuid, version, name, description, type, item_pk, job_pk, created_at
		FROM bins
		WHERE pk = $1
	`
	return r.scanBin(r.db.QueryRow(query, pk))
}

// GetBinVersion retrieves a specific version of a bin by uuid. A version of 0
// selects the latest version.
func (r *BinRepository) GetBinVersion(uuid string, version int) (*models.Bin, error) {
	query := `
		SELECT pk, uuid, version, name, description, type, item_pk, job_pk, created_at
		FROM bins
		WHERE uuid = $1
	`
	args := []interface{}{uuid}
	if version > 0 {
		query += " AND version = $2"
		args = append(args, version)
	} else {
		query += " ORDER BY version DESC LIMIT 1"
	}
	return r.scanBin(r.db.QueryRow(query, args...))
}

func (r *BinRepository) scanBin(row rowScanner) (*models.Bin, error) {
	var bin models.Bin
	var description sql.NullString
	var itemPK sql.NullInt64
	var jobPK sql.NullInt64

	err := row.Scan(
		&bin.PK,
		&bin.UUID,
		&bin.Version,
		&bin.Name,
		&description,
		&bin.Type,
		&itemPK,
		&jobPK,
		&bin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		bin.Description = description.String
	}
	if itemPK.Valid {
		bin.ItemPK = &itemPK.Int64
	}
	if jobPK.Valid {
		bin.JobPK = &jobPK.Int64
	}

	return &bin, nil
}

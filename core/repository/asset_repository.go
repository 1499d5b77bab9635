package repository

import (
	"database/sql"

	"asset-pipeline/core/models"

	"github.com/google/uuid"
)

// AssetRepository handles database operations for assets
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// CreateAsset inserts a new asset version. Byte size stays null until the
// physical write completes and the caller patches it.
func (r *AssetRepository) CreateAsset(asset *models.Asset) error {
	if asset.UUID == "" {
		asset.UUID = uuid.New().String()
	}

	query := `
		INSERT INTO assets (uuid, version, file_path, name, extension, bin_pk, created_at)
		VALUES ($1, COALESCE((SELECT MAX(version) FROM assets WHERE uuid = $1), 0) + 1, $2, $3, $4, $5, NOW())
		RETURNING pk, version, created_at
	`
	return r.db.QueryRow(query,
		asset.UUID,
		asset.FilePath,
		asset.Name,
		asset.Extension,
		asset.BinPK,
	).Scan(&asset.PK, &asset.Version, &asset.CreatedAt)
}

// UpdateAssetSize patches the byte size after a successful physical write
func (r *AssetRepository) UpdateAssetSize(asset *models.Asset, size int64) error {
	_, err := r.db.Exec(`UPDATE assets SET byte_size = $1 WHERE pk = $2`, size, asset.PK)
	if err == nil {
		asset.ByteSize = &size
	}
	return err
}

// DeleteAsset removes an asset record by primary key
func (r *AssetRepository) DeleteAsset(pk int64) error {
	_, err := r.db.Exec(`DELETE FROM assets WHERE pk = $1`, pk)
	return err
}

// FindAsset resolves an asset by logical path within a bin. A version of 0
// selects the latest version. Returns nil without error when no asset matches.
func (r *AssetRepository) FindAsset(filePath string, binPK int64, version int) (*models.Asset, error) {
	query := `
		SELECT pk, uuid, version, file_path, name, extension, byte_size, bin_pk, created_at
		FROM assets
		WHERE file_path = $1 AND bin_pk = $2
	`
	args := []interface{}{filePath, binPK}
	if version > 0 {
		query += " AND version = $3"
		args = append(args, version)
	} else {
		query += " ORDER BY version DESC LIMIT 1"
	}

	asset, err := r.scanAsset(r.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return asset, err
}

// ListBinAssets lists all assets belonging to a bin
func (r *AssetRepository) ListBinAssets(binPK int64) ([]*models.Asset, error) {
	query := `
		SELECT pk, uuid, version, file_path, name, extension, byte_size, bin_pk, created_at
		FROM assets
		WHERE bin_pk = $1
		ORDER BY file_path ASC
	`
	rows, err := r.db.Query(query, binPK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset, err := r.scanAsset(rows)
		if err != nil {
			continue
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (r *AssetRepository) scanAsset(row rowScanner) (*models.Asset, error) {
	var asset models.Asset
	var byteSize sql.NullInt64

	err := row.Scan(
		&asset.PK,
		&asset.UUID,
		&asset.Version,
		&asset.FilePath,
		&asset.Name,
		&asset.Extension,
		&byteSize,
		&asset.BinPK,
		&asset.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if byteSize.Valid {
		asset.ByteSize = &byteSize.Int64
	}

	return &asset, nil
}

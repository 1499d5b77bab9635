package storage

import (
	"io"
	"path"
	"strings"

	"asset-pipeline/core/models"

	log "github.com/sirupsen/logrus"
)

// AssetStore is the persistence surface ManagedRepository needs for asset
// records
type AssetStore interface {
	CreateAsset(asset *models.Asset) error
	UpdateAssetSize(asset *models.Asset, size int64) error
	DeleteAsset(pk int64) error
	FindAsset(filePath string, binPK int64, version int) (*models.Asset, error)
}

// Mounter manages transient WebDAV shares keyed by bin uuid
type Mounter interface {
	Mount(binUUID, dir string) error
	Unmount(binUUID string) int
	IsMounted(binUUID string) bool
}

// ManagedRepository bridges the file store with the WebDAV exposure layer and
// exposes asset-level reads and writes that keep asset records consistent
// with physical files.
type ManagedRepository struct {
	store  *FileStore
	assets AssetStore
	mounts Mounter
}

// NewManagedRepository creates a new managed repository
func NewManagedRepository(store *FileStore, assets AssetStore, mounts Mounter) *ManagedRepository {
	return &ManagedRepository{
		store:  store,
		assets: assets,
		mounts: mounts,
	}
}

// GrantAccess mounts the bin's physical storage path as a WebDAV share.
// Granting an already-mounted bin is a no-op.
func (m *ManagedRepository) GrantAccess(bin *models.Bin) error {
	if m.mounts.IsMounted(bin.UUID) {
		log.WithField("bin", bin.UUID).Info("bin already mounted")
		return nil
	}

	physical := m.store.Resolve(bin.StoragePath())
	if err := m.store.fs.MkdirAll(physical, 0o755); err != nil {
		return &MountError{BinUUID: bin.UUID, Path: physical, Reason: err.Error()}
	}

	if err := m.mounts.Mount(bin.UUID, physical); err != nil {
		return &MountError{BinUUID: bin.UUID, Path: physical, Reason: err.Error()}
	}

	log.WithFields(log.Fields{"bin": bin.UUID, "path": physical}).Info("granted webdav access")
	return nil
}

// RevokeAccess removes the bin's WebDAV share. Revoking an unmounted bin is a
// no-op.
func (m *ManagedRepository) RevokeAccess(bin *models.Bin) error {
	if !m.mounts.IsMounted(bin.UUID) {
		log.WithField("bin", bin.UUID).Info("bin not mounted, nothing to revoke")
		return nil
	}

	if removed := m.mounts.Unmount(bin.UUID); removed == 0 {
		return &MountError{BinUUID: bin.UUID, Path: m.store.Resolve(bin.StoragePath()), Reason: "unmount removed no shares"}
	}

	log.WithField("bin", bin.UUID).Info("revoked webdav access")
	return nil
}

// ReadAsset resolves the asset record for (filePath, bin, version) and opens
// its content for reading. A version of 0 selects the latest version. Returns
// a nil stream and nil asset when no matching record exists.
func (m *ManagedRepository) ReadAsset(filePath string, bin *models.Bin, version int) (io.ReadCloser, *models.Asset, error) {
	asset, err := m.assets.FindAsset(filePath, bin.PK, version)
	if err != nil {
		return nil, nil, err
	}
	if asset == nil {
		return nil, nil, nil
	}

	stream, err := m.store.OpenReadStream(asset.StoragePath())
	if err != nil {
		return nil, nil, err
	}
	return stream, asset, nil
}

// WriteAsset creates the asset record first so a stable storage target
// exists, performs the physical write, then patches the record's byte size
// from the post-write stat. Any failure after record creation deletes the
// orphaned record before the error propagates.
func (m *ManagedRepository) WriteAsset(source io.Reader, filePath string, bin *models.Bin) (*models.Asset, error) {
	base := path.Base(filePath)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	name := strings.TrimSuffix(base, path.Ext(base))

	asset := &models.Asset{
		FilePath:  filePath,
		Name:      name,
		Extension: ext,
		BinPK:     bin.PK,
	}
	if err := m.assets.CreateAsset(asset); err != nil {
		return nil, err
	}

	if err := m.store.WriteFrom(source, asset.StoragePath()); err != nil {
		m.rollbackAsset(asset)
		return nil, err
	}

	info, err := m.store.Stat(asset.StoragePath())
	if err != nil {
		m.rollbackAsset(asset)
		return nil, err
	}

	if err := m.assets.UpdateAssetSize(asset, info.ByteSize); err != nil {
		m.rollbackAsset(asset)
		return nil, err
	}

	return asset, nil
}

// DeleteAssetFile removes the asset's physical file. The record's lifecycle
// stays with the caller.
func (m *ManagedRepository) DeleteAssetFile(asset *models.Asset) error {
	return m.store.Delete(asset.StoragePath())
}

func (m *ManagedRepository) rollbackAsset(asset *models.Asset) {
	if err := m.assets.DeleteAsset(asset.PK); err != nil {
		log.WithError(err).WithField("asset", asset.UUID).Error("failed to delete orphaned asset record")
	}
}

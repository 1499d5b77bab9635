package storage

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"asset-pipeline/core/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssetStore struct {
	mu      sync.Mutex
	nextPK  int64
	assets  map[int64]*models.Asset
	sizeErr error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{assets: make(map[int64]*models.Asset)}
}

func (f *fakeAssetStore) CreateAsset(asset *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPK++
	asset.PK = f.nextPK
	if asset.UUID == "" {
		asset.UUID = "asset-uuid"
	}
	if asset.Version == 0 {
		asset.Version = 1
	}
	f.assets[asset.PK] = asset
	return nil
}

func (f *fakeAssetStore) UpdateAssetSize(asset *models.Asset, size int64) error {
	if f.sizeErr != nil {
		return f.sizeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	asset.ByteSize = &size
	return nil
}

func (f *fakeAssetStore) DeleteAsset(pk int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assets, pk)
	return nil
}

func (f *fakeAssetStore) FindAsset(filePath string, binPK int64, version int) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.FilePath == filePath && a.BinPK == binPK && (version == 0 || a.Version == version) {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAssetStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

// countingMounter wraps the real mount set and counts mount attempts
type countingMounter struct {
	*MountSet
	mountCalls int
	mountErr   error
	unmountRet *int
}

func (c *countingMounter) Mount(binUUID, dir string) error {
	c.mountCalls++
	if c.mountErr != nil {
		return c.mountErr
	}
	return c.MountSet.Mount(binUUID, dir)
}

func (c *countingMounter) Unmount(binUUID string) int {
	if c.unmountRet != nil {
		return *c.unmountRet
	}
	return c.MountSet.Unmount(binUUID)
}

func testBin() *models.Bin {
	return &models.Bin{PK: 1, UUID: "0f8e2a9c", Version: 1, Name: "master scans", Type: models.BinTypeMaster}
}

func newManaged() (*ManagedRepository, *fakeAssetStore, *countingMounter) {
	store := NewFileStore(afero.NewMemMapFs(), "/store")
	assets := newFakeAssetStore()
	mounter := &countingMounter{MountSet: NewMountSet("/repo")}
	return NewManagedRepository(store, assets, mounter), assets, mounter
}

func TestGrantAccess_Idempotent(t *testing.T) {
	managed, _, mounter := newManaged()
	bin := testBin()

	require.NoError(t, managed.GrantAccess(bin))
	require.NoError(t, managed.GrantAccess(bin), "granting a mounted bin is a no-op, not an error")

	assert.Equal(t, 1, mounter.mountCalls, "exactly one mount for repeated grants")
	assert.True(t, mounter.IsMounted(bin.UUID))
}

func TestGrantAccess_MountFailure(t *testing.T) {
	managed, _, mounter := newManaged()
	mounter.mountErr = errors.New("device busy")
	bin := testBin()

	err := managed.GrantAccess(bin)

	var mountErr *MountError
	require.ErrorAs(t, err, &mountErr)
	assert.Equal(t, bin.UUID, mountErr.BinUUID)
	assert.Contains(t, mountErr.Path, "bins/0f8e2a9c/v1", "the error carries the attempted physical path")
}

func TestRevokeAccess_UnmountedIsNoOp(t *testing.T) {
	managed, _, mounter := newManaged()

	require.NoError(t, managed.RevokeAccess(testBin()))
	assert.Equal(t, 0, mounter.mountCalls)
}

func TestRevokeAccess(t *testing.T) {
	managed, _, mounter := newManaged()
	bin := testBin()

	require.NoError(t, managed.GrantAccess(bin))
	require.NoError(t, managed.RevokeAccess(bin))
	assert.False(t, mounter.IsMounted(bin.UUID))
}

func TestRevokeAccess_ZeroRemovals(t *testing.T) {
	managed, _, mounter := newManaged()
	bin := testBin()
	require.NoError(t, managed.GrantAccess(bin))

	zero := 0
	mounter.unmountRet = &zero

	var mountErr *MountError
	assert.ErrorAs(t, managed.RevokeAccess(bin), &mountErr)
}

func TestWriteAsset_PatchesByteSize(t *testing.T) {
	managed, assets, _ := newManaged()
	bin := testBin()

	asset, err := managed.WriteAsset(strings.NewReader("mesh payload"), "models/scene.obj", bin)
	require.NoError(t, err)

	require.NotNil(t, asset.ByteSize)
	assert.Equal(t, int64(len("mesh payload")), *asset.ByteSize)
	assert.Equal(t, "scene", asset.Name)
	assert.Equal(t, "obj", asset.Extension)
	assert.Equal(t, 1, assets.count())
}

func TestWriteAsset_ReadBackRoundTrip(t *testing.T) {
	managed, _, _ := newManaged()
	bin := testBin()

	_, err := managed.WriteAsset(strings.NewReader("round trip content"), "models/scene.obj", bin)
	require.NoError(t, err)

	stream, asset, err := managed.ReadAsset("models/scene.obj", bin, 0)
	require.NoError(t, err)
	require.NotNil(t, stream)
	defer stream.Close()

	content, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "round trip content", string(content))
	assert.Equal(t, int64(len("round trip content")), *asset.ByteSize)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("stream interrupted")
}

func TestWriteAsset_FailedWriteRollsBackRecord(t *testing.T) {
	managed, assets, _ := newManaged()
	bin := testBin()

	_, err := managed.WriteAsset(failingReader{}, "models/broken.obj", bin)
	require.Error(t, err)

	assert.Equal(t, 0, assets.count(), "the orphaned record must be deleted before the error surfaces")

	found, findErr := assets.FindAsset("models/broken.obj", bin.PK, 0)
	require.NoError(t, findErr)
	assert.Nil(t, found)
}

func TestWriteAsset_FailedSizePatchRollsBackRecord(t *testing.T) {
	managed, assets, _ := newManaged()
	assets.sizeErr = errors.New("db unavailable")
	bin := testBin()

	_, err := managed.WriteAsset(strings.NewReader("data"), "models/scene.obj", bin)
	require.Error(t, err)
	assert.Equal(t, 0, assets.count())
}

func TestReadAsset_MissingReturnsNil(t *testing.T) {
	managed, _, _ := newManaged()

	stream, asset, err := managed.ReadAsset("no/such/file.txt", testBin(), 0)
	require.NoError(t, err)
	assert.Nil(t, stream)
	assert.Nil(t, asset)
}

func TestDeleteAssetFile_KeepsRecord(t *testing.T) {
	managed, assets, _ := newManaged()
	bin := testBin()

	asset, err := managed.WriteAsset(strings.NewReader("x"), "models/scene.obj", bin)
	require.NoError(t, err)

	require.NoError(t, managed.DeleteAssetFile(asset))
	assert.Equal(t, 1, assets.count(), "record lifecycle stays with the caller")

	var notFound *NotFoundError
	assert.ErrorAs(t, managed.DeleteAssetFile(asset), &notFound)
}

package storage

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/webdav"
)

// MountSet serves transient WebDAV mounts, one per granted bin, under
// {prefix}/{binUUID}/. The set lives in process memory only: mounts do not
// survive a restart and must be re-granted by callers.
type MountSet struct {
	prefix string
	mu     sync.RWMutex
	mounts map[string]*webdav.Handler
}

// NewMountSet creates an empty mount set served under prefix
func NewMountSet(prefix string) *MountSet {
	return &MountSet{
		prefix: strings.TrimSuffix(prefix, "/"),
		mounts: make(map[string]*webdav.Handler),
	}
}

// Mount exposes dir as a WebDAV share for binUUID
func (m *MountSet) Mount(binUUID, dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mounts[binUUID] = &webdav.Handler{
		Prefix:     m.prefix + "/" + binUUID,
		FileSystem: webdav.Dir(dir),
		LockSystem: webdav.NewMemLS(),
	}
	return nil
}

// Unmount removes the share for binUUID and returns the number of mounts
// removed
func (m *MountSet) Unmount(binUUID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mounts[binUUID]; !ok {
		return 0
	}
	delete(m.mounts, binUUID)
	return 1
}

// IsMounted reports whether binUUID currently has a share
func (m *MountSet) IsMounted(binUUID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.mounts[binUUID]
	return ok
}

// ServeHTTP dispatches {prefix}/{binUUID}/... requests to the matching mount
func (m *MountSet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, m.prefix+"/")
	binUUID := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		binUUID = rest[:i]
	}

	m.mu.RLock()
	handler, ok := m.mounts[binUUID]
	m.mu.RUnlock()

	if !ok {
		http.Error(w, "bin not mounted", http.StatusNotFound)
		return
	}
	handler.ServeHTTP(w, r)
}

package storage

import "fmt"

// NotFoundError reports a physical file absent from the store
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found in store: %s", e.Path)
}

// MountError reports a WebDAV mount or unmount failure
type MountError struct {
	BinUUID string
	Path    string
	Reason  string
}

func (e *MountError) Error() string {
	return fmt.Sprintf("mount operation failed for bin %s at %s: %s", e.BinUUID, e.Path, e.Reason)
}

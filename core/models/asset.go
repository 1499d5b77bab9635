package models

import (
	"fmt"
	"path"
	"time"
)

// Asset is one versioned file entry belonging to a bin
type Asset struct {
	PK        int64
	UUID      string
	Version   int
	FilePath  string // logical path within the owning bin
	Name      string
	Extension string
	ByteSize  *int64 // nil until the physical write completes
	BinPK     int64
	CreatedAt time.Time
}

// StoragePath derives the asset's physical location relative to the store root
// as {uuid}/{version}/{name}.{extension}.
func (a *Asset) StoragePath() string {
	name := a.Name
	if a.Extension != "" {
		name = fmt.Sprintf("%s.%s", a.Name, a.Extension)
	}
	return path.Join(a.UUID, fmt.Sprintf("%d", a.Version), name)
}

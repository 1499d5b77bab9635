package models

import (
	"fmt"
	"path"
	"time"
)

// Bin is a versioned logical container of assets tied to physical storage
type Bin struct {
	PK          int64
	UUID        string
	Version     int // starts at 1, monotonically increasing per UUID
	Name        string
	Description string
	Type        BinType
	ItemPK      *int64 // optional content grouping
	JobPK       *int64 // set when the bin was created as job output
	CreatedAt   time.Time
}

// BinType tags the content category of a bin
type BinType string

const (
	BinTypePhotogrammetry BinType = "photogrammetry"
	BinTypeMaster         BinType = "master"
	BinTypePrintable      BinType = "printable"
	BinTypeEditorial      BinType = "editorial"
	BinTypeWeb            BinType = "web"
	BinTypeMedia          BinType = "media"
	BinTypeProcessing     BinType = "processing"
)

// StoragePath derives the bin's physical location relative to the store root.
// It is a pure function of (uuid, version) and is never persisted.
func (b *Bin) StoragePath() string {
	return path.Join("bins", b.UUID, fmt.Sprintf("v%d", b.Version))
}

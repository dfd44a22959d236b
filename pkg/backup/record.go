package backup

import (
	"bytes"
	"time"

	"github.com/blacktop/go-plist"
)

// Files.flags bits in Manifest.db
const (
	flagRegularFile = 1
	flagDirectory   = 2
	flagSymlink     = 4
)

// Kind classifies a catalog entry. It is decoded once from the raw flags
// bitset when the record is constructed.
type Kind int

const (
	UnknownKind Kind = iota
	RegularFile
	Directory
	Symlink
)

func (k Kind) String() string {
	switch k {
	case RegularFile:
		return "file"
	case Directory:
		return "directory"
	case Symlink:
		return "symlink"
	}
	return "unknown"
}

func kindFromFlags(flags int) Kind {
	switch {
	case flags&flagRegularFile != 0:
		return RegularFile
	case flags&flagDirectory != 0:
		return Directory
	case flags&flagSymlink != 0:
		return Symlink
	}
	return UnknownKind
}

// Record is one row of the backup catalog: the logical (domain, path)
// identity of a backed up file plus its content address and attributes.
// Records are read-only projections built fresh per query.
//
// Size, ModTime and Birth come from the NSKeyedArchiver blob stored
// alongside the row and are zero when the catalog carries no metadata.
type Record struct {
	ID           string // SHA1 content address, the physical file name
	Domain       string
	RelativePath string
	Kind         Kind
	Size         int64
	ModTime      time.Time
	Birth        time.Time
}

// decodeStat pulls Size/LastModified/Birth out of the keyed-archiver plist
// blob in the Files.file column. Best-effort: any undecodable blob just
// leaves the attributes zeroed.
func decodeStat(blob []byte) (size int64, mtime, birth time.Time) {
	if len(blob) == 0 {
		return
	}
	var archive map[string]any
	if err := plist.NewDecoder(bytes.NewReader(blob)).Decode(&archive); err != nil {
		return
	}
	objects, ok := archive["$objects"].([]any)
	if !ok {
		return
	}
	for _, obj := range objects {
		dict, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		// the MBFile object is the one carrying Size
		v, ok := dict["Size"]
		if !ok {
			continue
		}
		size = plistInt(v)
		if ts, ok := dict["LastModified"]; ok {
			mtime = time.Unix(plistInt(ts), 0).UTC()
		}
		if ts, ok := dict["Birth"]; ok {
			birth = time.Unix(plistInt(ts), 0).UTC()
		}
		return
	}
	return
}

func plistInt(v any) int64 {
	switch n := v.(type) {
	case uint64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

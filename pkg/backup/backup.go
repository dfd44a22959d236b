// Package backup reads unencrypted iTunes/Finder (MobileSync) device backups.
//
// A backup directory contains a Manifest.db SQLite catalog describing every
// backed up file and a fan-out object store where file content lives under
// a SHA1 content address: the first two hex chars of the fileID name the
// subdirectory, the fileID names the object within it.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrManifestUnavailable means the Manifest.db catalog could not be
	// opened or is structurally invalid. This is fatal for a command.
	ErrManifestUnavailable = errors.New("manifest database unavailable")
	// ErrNotStorable means the record is a directory or other non-regular
	// entry with no backing content in the object store.
	ErrNotStorable = errors.New("record has no backing content")
	// ErrObjectMissing means the expected content-addressed object is
	// absent from the backup's fan-out store.
	ErrObjectMissing = errors.New("object missing from backup store")
)

const (
	manifestName = "Manifest.db"
	infoName     = "Info.plist"
)

// Backup is an opened MobileSync backup directory.
type Backup struct {
	Dir  string
	Info *Info // nil when Info.plist is absent or unparseable

	manifest *Manifest
}

// Open opens the backup at dir. It fails with ErrManifestUnavailable when
// dir does not contain a usable Manifest.db.
func Open(dir string) (*Backup, error) {
	m, err := openManifest(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}
	b := &Backup{Dir: dir, manifest: m}
	if info, err := parseInfoPlist(filepath.Join(dir, infoName)); err == nil {
		b.Info = info
	}
	return b, nil
}

// Close releases the underlying catalog connection.
func (b *Backup) Close() error {
	return b.manifest.Close()
}

// Walk streams every catalog record matching c in the catalog's natural
// row order. See Manifest.Walk.
func (b *Backup) Walk(c Criteria, fn func(*Record) error) error {
	return b.manifest.Walk(c, fn)
}

// Search buffers Walk into a slice.
func (b *Backup) Search(c Criteria) ([]*Record, error) {
	return b.manifest.Search(c)
}

// Skipped reports how many catalog rows were dropped for having an
// unusable identity.
func (b *Backup) Skipped() int {
	return b.manifest.Skipped()
}

// ObjectPath locates the content-addressed object backing r inside the
// backup's fan-out store. The catalog-provided fileID is trusted as-is;
// the address is never recomputed from domain and path.
func (b *Backup) ObjectPath(r *Record) (string, error) {
	if r.Kind != RegularFile {
		return "", fmt.Errorf("%s %s/%s: %w", r.Kind, r.Domain, r.RelativePath, ErrNotStorable)
	}
	if len(r.ID) < 2 {
		return "", fmt.Errorf("unaddressable fileID %q: %w", r.ID, ErrObjectMissing)
	}
	path := filepath.Join(b.Dir, r.ID[:2], r.ID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrObjectMissing)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return path, nil
}

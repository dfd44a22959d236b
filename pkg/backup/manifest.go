package backup

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// manifestFile mirrors one row of the Files table in Manifest.db.
type manifestFile struct {
	FileID       string `gorm:"column:fileID;primaryKey"`
	Domain       string `gorm:"column:domain"`
	RelativePath string `gorm:"column:relativePath"`
	Flags        int    `gorm:"column:flags"`
	File         []byte `gorm:"column:file"`
}

func (manifestFile) TableName() string {
	return "Files"
}

func (mf manifestFile) record() *Record {
	r := &Record{
		ID:           mf.FileID,
		Domain:       mf.Domain,
		RelativePath: mf.RelativePath,
		Kind:         kindFromFlags(mf.Flags),
	}
	r.Size, r.ModTime, r.Birth = decodeStat(mf.File)
	return r
}

// Manifest is a read-only view of a backup's Manifest.db catalog.
type Manifest struct {
	db      *gorm.DB
	skipped int
}

func openManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestUnavailable, path)
	}
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=query_only(1)"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrManifestUnavailable, path, err)
	}
	m := &Manifest{db: db}
	if !db.Migrator().HasTable(&manifestFile{}) {
		m.Close()
		return nil, fmt.Errorf("%w: %s has no Files table", ErrManifestUnavailable, path)
	}
	return m, nil
}

// Close releases the underlying sqlite connection.
func (m *Manifest) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Skipped reports how many rows the last Walk dropped for having an
// unusable identity.
func (m *Manifest) Skipped() int {
	return m.skipped
}

// Walk streams every record matching c to fn in the catalog's natural row
// order, one row at a time so large catalogs are never materialized.
//
// Predicates are evaluated here rather than pushed into SQL: SQLite's LIKE
// is case-insensitive and substring matching on catalog values must stay
// case-sensitive. Rows whose fileID cannot address an object are counted
// and skipped, not fatal. A non-nil error from fn stops the walk.
func (m *Manifest) Walk(c Criteria, fn func(*Record) error) error {
	m.skipped = 0
	rows, err := m.db.Model(&manifestFile{}).Rows()
	if err != nil {
		return fmt.Errorf("failed to query manifest: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mf manifestFile
		if err := m.db.ScanRows(rows, &mf); err != nil {
			m.skipped++
			log.Debugf("skipping unreadable manifest row: %v", err)
			continue
		}
		if len(mf.FileID) < 2 {
			m.skipped++
			log.WithFields(log.Fields{
				"domain": mf.Domain,
				"path":   mf.RelativePath,
			}).Debug("skipping manifest row with unusable fileID")
			continue
		}
		rec := mf.record()
		if !c.Matches(rec) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Search buffers Walk into a slice.
func (m *Manifest) Search(c Criteria) ([]*Record, error) {
	var recs []*Record
	if err := m.Walk(c, func(r *Record) error {
		recs = append(recs, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return recs, nil
}

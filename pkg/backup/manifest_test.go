package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	newsID   = "356a192b7913b04c54574d18c28d46e6395428ab"
	safariID = "da4b9237bacccdf19c0760cab7aec4a8359010b0"
	docsID   = "77de68daecd823babbb58edb1c8e14d7106e83bb"
)

// writeManifest creates a Manifest.db under dir holding the given rows.
func writeManifest(t *testing.T, dir string, rows []manifestFile) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, manifestName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create manifest fixture: %v", err)
	}
	if err := db.AutoMigrate(&manifestFile{}); err != nil {
		t.Fatalf("failed to migrate manifest fixture: %v", err)
	}
	for _, row := range rows {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to insert fixture row %q: %v", row.FileID, err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get fixture db handle: %v", err)
	}
	sqlDB.Close()
}

// writeObject drops content into the fan-out store for the given id.
func writeObject(t *testing.T, dir, id string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, id[:2]), 0o750); err != nil {
		t.Fatalf("failed to create fan-out dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id[:2], id), content, 0o640); err != nil {
		t.Fatalf("failed to write object %s: %v", id, err)
	}
}

func fixtureRows() []manifestFile {
	return []manifestFile{
		{FileID: newsID, Domain: "com.apple.news", RelativePath: "Documents/a.db", Flags: 1},
		{FileID: safariID, Domain: "com.apple.mobilesafari", RelativePath: "Documents/b.plist", Flags: 1},
		{FileID: docsID, Domain: "com.apple.news", RelativePath: "Documents", Flags: 2},
	}
}

func TestOpenBackupMissingManifest(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrManifestUnavailable) {
		t.Fatalf("Open() error = %v, want ErrManifestUnavailable", err)
	}
}

func TestOpenBackupCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifestName), []byte("not a database"), 0o640); err != nil {
		t.Fatal(err)
	}
	_, err := Open(dir)
	if !errors.Is(err, ErrManifestUnavailable) {
		t.Fatalf("Open() error = %v, want ErrManifestUnavailable", err)
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, fixtureRows())

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer b.Close()

	tests := []struct {
		name     string
		criteria Criteria
		wantIDs  map[string]bool
	}{
		{
			name:     "empty criteria matches everything",
			criteria: Criteria{},
			wantIDs:  map[string]bool{newsID: true, safariID: true, docsID: true},
		},
		{
			name:     "domain contains",
			criteria: Criteria{Predicates: []Predicate{DomainContains("news")}},
			wantIDs:  map[string]bool{newsID: true, docsID: true},
		},
		{
			name:     "path exact",
			criteria: Criteria{Predicates: []Predicate{PathExact("Documents/b.plist")}},
			wantIDs:  map[string]bool{safariID: true},
		},
		{
			name: "AND across fields",
			criteria: Criteria{Predicates: []Predicate{
				DomainContains("news"),
				PathContains("plist"),
			}},
			wantIDs: map[string]bool{},
		},
		{
			name: "OR across fields",
			criteria: Criteria{
				Predicates: []Predicate{
					DomainContains("news"),
					PathContains("plist"),
				},
				Any: true,
			},
			wantIDs: map[string]bool{newsID: true, safariID: true, docsID: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := b.Search(tt.criteria)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(recs) != len(tt.wantIDs) {
				t.Fatalf("Search() returned %d records, want %d", len(recs), len(tt.wantIDs))
			}
			for _, rec := range recs {
				if !tt.wantIDs[rec.ID] {
					t.Errorf("Search() returned unexpected record %s (%s/%s)", rec.ID, rec.Domain, rec.RelativePath)
				}
			}
		})
	}
}

func TestSearchDecodesKindAndStat(t *testing.T) {
	dir := t.TempDir()
	rows := fixtureRows()
	rows[0].File = statBlob(t, 4096, 1600000000, 1500000000)
	writeManifest(t, dir, rows)

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer b.Close()

	recs, err := b.Search(Criteria{Predicates: []Predicate{PathExact("Documents/a.db")}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Search() returned %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Kind != RegularFile {
		t.Errorf("Kind = %v, want RegularFile", rec.Kind)
	}
	if rec.Size != 4096 {
		t.Errorf("Size = %d, want 4096", rec.Size)
	}
	if rec.ModTime.IsZero() || rec.Birth.IsZero() {
		t.Errorf("timestamps not decoded: mtime=%v birth=%v", rec.ModTime, rec.Birth)
	}
}

func TestWalkSkipsUnusableRows(t *testing.T) {
	dir := t.TempDir()
	rows := append(fixtureRows(), manifestFile{FileID: "x", Domain: "com.apple.broken", RelativePath: "whatever", Flags: 1})
	writeManifest(t, dir, rows)

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer b.Close()

	recs, err := b.Search(Criteria{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("Search() returned %d records, want 3", len(recs))
	}
	if b.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", b.Skipped())
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, fixtureRows())

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer b.Close()

	stop := errors.New("stop")
	seen := 0
	err = b.Walk(Criteria{}, func(*Record) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Walk() error = %v, want %v", err, stop)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times after returning an error, want 1", seen)
	}
}

func TestObjectPath(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, fixtureRows())
	writeObject(t, dir, newsID, []byte("news content"))

	b, err := Open(dir)
	if err != nil {
		t.Fatalf("failed to open backup: %v", err)
	}
	defer b.Close()

	recs, err := b.Search(Criteria{Predicates: []Predicate{PathExact("Documents/a.db")}})
	if err != nil || len(recs) != 1 {
		t.Fatalf("Search() = %d records, err %v", len(recs), err)
	}

	// round trip: the repository-produced record resolves to the fan-out path
	path, err := b.ObjectPath(recs[0])
	if err != nil {
		t.Fatalf("ObjectPath() error = %v", err)
	}
	if want := filepath.Join(dir, newsID[:2], newsID); path != want {
		t.Errorf("ObjectPath() = %s, want %s", path, want)
	}

	// removing the object makes resolution fail
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := b.ObjectPath(recs[0]); !errors.Is(err, ErrObjectMissing) {
		t.Errorf("ObjectPath() after remove = %v, want ErrObjectMissing", err)
	}

	// directories have no backing content
	dirs, err := b.Search(Criteria{Predicates: []Predicate{PathExact("Documents")}})
	if err != nil || len(dirs) != 1 {
		t.Fatalf("Search() = %d records, err %v", len(dirs), err)
	}
	if _, err := b.ObjectPath(dirs[0]); !errors.Is(err, ErrNotStorable) {
		t.Errorf("ObjectPath(directory) = %v, want ErrNotStorable", err)
	}
}

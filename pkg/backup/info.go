package backup

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/go-plist"
)

// Info holds the device metadata recorded in a backup's Info.plist.
type Info struct {
	DeviceName     string    `plist:"Device Name,omitempty"`
	DisplayName    string    `plist:"Display Name,omitempty"`
	ProductName    string    `plist:"Product Name,omitempty"`
	ProductType    string    `plist:"Product Type,omitempty"`
	ProductVersion string    `plist:"Product Version,omitempty"`
	SerialNumber   string    `plist:"Serial Number,omitempty"`
	UDID           string    `plist:"Unique Identifier,omitempty"`
	LastBackupDate time.Time `plist:"Last Backup Date,omitempty"`
}

func parseInfoPlist(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info := &Info{}
	if err := plist.NewDecoder(bytes.NewReader(data)).Decode(info); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return info, nil
}

// List scans a MobileSync backups root and returns the metadata of every
// backup found under it. Children without a parseable Info.plist are
// skipped.
func List(root string) ([]*Info, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups root: %w", err)
	}
	var infos []*Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := parseInfoPlist(filepath.Join(root, entry.Name(), infoName))
		if err != nil {
			log.Debugf("skipping %s: %v", entry.Name(), err)
			continue
		}
		if info.UDID == "" {
			// backup folders are named after the device UDID
			info.UDID = entry.Name()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
)

// Cp copies a file from src to dst, truncating any previous dst content.
func Cp(src, dst string) error {
	from, err := os.Open(src)
	if err != nil {
		return err
	}
	defer from.Close()

	to, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer to.Close()

	_, err = io.Copy(to, from)

	return err
}

// PickBackup resolves dir to a backup directory containing a Manifest.db.
// When dir itself is a backup it is returned as-is; when it is a
// MobileSync root holding several backups the user is prompted to choose.
func PickBackup(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, "Manifest.db")); err == nil {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, entry.Name(), "Manifest.db")); err == nil {
			backups = append(backups, entry.Name())
		}
	}

	switch len(backups) {
	case 0:
		return "", fmt.Errorf("no Manifest.db found in %s (or its subdirectories)", dir)
	case 1:
		return filepath.Join(dir, backups[0]), nil
	}

	var choice string
	prompt := &survey.Select{
		Message: "Choose a backup:",
		Options: backups,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}

	return filepath.Join(dir, choice), nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of tunables-file backups to keep.
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files.
	BackupSuffix = ".bak"
)

// BackupTunables creates a timestamped backup of the local tunables file
// (RestoreTunables calls it before overwriting the file).
// Returns the backup file path, or empty string if no tunables file exists.
func BackupTunables() (string, error) {
	path := DefaultTunablesPath()
	if !fileExists(path) {
		return "", nil
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, timestamp)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read tunables file for backup: %w", err)
	}
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	_ = cleanupOldBackups(path)

	return backupPath, nil
}

// ListTunablesBackups returns all backup files for the tunables file,
// sorted by modification time, newest first.
func ListTunablesBackups() ([]string, error) {
	path := DefaultTunablesPath()
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	prefix := base + BackupSuffix + "."
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(backups, func(i, j int) bool {
		infoI, _ := os.Stat(backups[i])
		infoJ, _ := os.Stat(backups[j])
		if infoI == nil || infoJ == nil {
			return false
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the newest.
func cleanupOldBackups(path string) error {
	backups, err := ListTunablesBackups()
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, backup := range backups[MaxBackups:] {
		_ = os.Remove(backup)
	}
	return nil
}

// RestoreTunables restores the tunables file from a backup, backing up the
// current file first (if any).
func RestoreTunables(backupPath string) error {
	path := DefaultTunablesPath()

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	if fileExists(path) {
		if _, err := BackupTunables(); err != nil {
			return fmt.Errorf("failed to backup current tunables file before restore: %w", err)
		}
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write restored tunables file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

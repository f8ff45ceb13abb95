// =============================================================================
// Ventas Histórico - File Manager Utility
// =============================================================================
//
// This module provides the file utilities around the historical ledger:
//   - Backup copies of the ledger before it is extended
//   - Retention of old backups
//   - Unique, sortable backup file names
//
// BACKUP STRATEGY:
//   - The ledger is copied, never moved; the live file stays in place
//   - Copies go to the backup directory, optionally under YYYY/MM/DD
//   - Backups older than the retention window are removed after each copy
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBackupNameFormat names backups after the original file.
const DefaultBackupNameFormat = "{original}_{timestamp}_{short}"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles backups of one directory tree.
type FileManager struct {
	// BackupDir is the directory receiving backup copies.
	BackupDir string

	// NameFormat is the backup name format, see generateFileName.
	NameFormat string

	// UseTimestampSubdirs creates date-based subdirectories.
	// Example: backups/2025/07/19/VENTAS_HISTORICO_20250719_101500_1a2b3c4d.DBF
	UseTimestampSubdirs bool

	// Retention is the maximum age of a backup. 0 keeps everything.
	Retention time.Duration

	now func() time.Time
}

// NewFileManager creates a FileManager writing backups to backupDir.
func NewFileManager(backupDir string, retention time.Duration) *FileManager {
	return &FileManager{
		BackupDir:  backupDir,
		NameFormat: DefaultBackupNameFormat,
		Retention:  retention,
		now:        time.Now,
	}
}

// =============================================================================
// BACKUPS
// =============================================================================

// Backup copies a file into the backup directory and applies retention.
//
// PARAMETERS:
//   - filePath: The file to copy.
//
// RETURNS:
//   - The path of the copy, "" when filePath does not exist yet.
//   - An error if the copy fails. Retention failures are not reported.
func (fm *FileManager) Backup(filePath string) (string, error) {
	if !FileExists(filePath) {
		return "", nil
	}

	backupPath := fm.backupPath(filePath)
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if err := copyFile(filePath, backupPath); err != nil {
		return "", fmt.Errorf("failed to copy file to backup: %w", err)
	}

	if fm.Retention > 0 {
		CleanOldArchives(fm.BackupDir, fm.Retention)
	}

	return backupPath, nil
}

// backupPath constructs the backup path for a file.
func (fm *FileManager) backupPath(filePath string) string {
	now := fm.clock()
	ext := filepath.Ext(filePath)
	original := strings.TrimSuffix(filepath.Base(filePath), ext)

	format := fm.NameFormat
	if format == "" {
		format = DefaultBackupNameFormat
	}
	name := generateFileName(format, ext, now, map[string]string{"original": original})

	dir := fm.BackupDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(
			dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}
	return filepath.Join(dir, name)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// FILE NAMING
// =============================================================================

// generateFileName expands a backup name format.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {short}     - The first 8 characters of a random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {original}  - Original file name (without extension)
//   - ext: The extension appended when the result lacks it, e.g. ".DBF".
//   - now: The time used for the date placeholders.
//   - params: A map of placeholder values.
//
// EXAMPLE:
//   format: "{original}_{timestamp}_{short}"
//   params: {"original": "VENTAS_HISTORICO"}
//   output: "VENTAS_HISTORICO_20250719_101500_1a2b3c4d.DBF"
func generateFileName(format, ext string, now time.Time, params map[string]string) string {
	id := uuid.New().String()

	replacements := map[string]string{
		"{uuid}":      id,
		"{short}":     id[:8],
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// GetFileSize returns the size of a file in bytes.
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// CleanOldArchives removes files older than maxAge below archiveDir.
//
// PARAMETERS:
//   - archiveDir: The directory to clean. A missing directory is not an error.
//   - maxAge: The maximum age of files to keep.
//
// RETURNS:
//   - The number of files removed.
//   - An error if cleaning fails.
func CleanOldArchives(archiveDir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	err := filepath.Walk(archiveDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == archiveDir {
				return filepath.SkipDir
			}
			return err
		}

		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}

		return nil
	})

	if err != nil {
		return removed, fmt.Errorf("failed to clean archives: %w", err)
	}

	return removed, nil
}

package storage

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BackupMetadata describes a database backup.
type BackupMetadata struct {
	Version            string    `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	CorpusSnapshotCount int      `json:"corpus_snapshot_count"`
	PredictionCount    int       `json:"prediction_count"`
	SchemaVersion      int       `json:"schema_version"`
	DatabaseSize       int64     `json:"database_size_bytes"`
	Checksum           string    `json:"checksum_sha256"`
}

// DatabaseInfo returns information about the database state.
func (d *DB) DatabaseInfo() (*BackupMetadata, error) {
	meta := &BackupMetadata{
		Version:   "1.0",
		CreatedAt: time.Now(),
	}

	var snapshotCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM corpus_snapshots").Scan(&snapshotCount); err != nil {
		return nil, fmt.Errorf("count corpus snapshots: %w", err)
	}
	meta.CorpusSnapshotCount = snapshotCount

	var predictionCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM predictions").Scan(&predictionCount); err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	meta.PredictionCount = predictionCount

	var schemaVersion int
	row := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("get schema version: %w", err)
	}
	meta.SchemaVersion = schemaVersion

	return meta, nil
}

// CreateBackup creates a backup archive of the database, returning the path
// to the backup file and its metadata.
func (d *DB) CreateBackup(backupDir string) (string, *BackupMetadata, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", nil, fmt.Errorf("create backup dir: %w", err)
	}

	var seq int
	var name, dbPath string
	row := d.db.QueryRow("PRAGMA database_list")
	if err := row.Scan(&seq, &name, &dbPath); err != nil {
		return "", nil, fmt.Errorf("get db path: %w", err)
	}

	if _, err := d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		d.logger.Warn("WAL checkpoint failed", "error", err)
	}

	meta, err := d.DatabaseInfo()
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return "", nil, fmt.Errorf("stat db: %w", err)
	}
	meta.DatabaseSize = info.Size()

	timestamp := time.Now().Format("20060102-150405")
	backupName := fmt.Sprintf("harmonia-backup-%s.tar.gz", timestamp)
	backupPath := filepath.Join(backupDir, backupName)

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return "", nil, fmt.Errorf("create backup file: %w", err)
	}
	defer backupFile.Close()

	gzWriter := gzip.NewWriter(backupFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	checksum, err := addFileToTar(tarWriter, dbPath, "harmonia.db")
	if err != nil {
		return "", nil, fmt.Errorf("add db to archive: %w", err)
	}
	meta.Checksum = checksum

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal metadata: %w", err)
	}

	metaHeader := &tar.Header{
		Name:    "backup-metadata.json",
		Size:    int64(len(metaJSON)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := tarWriter.WriteHeader(metaHeader); err != nil {
		return "", nil, fmt.Errorf("write meta header: %w", err)
	}
	if _, err := tarWriter.Write(metaJSON); err != nil {
		return "", nil, fmt.Errorf("write meta content: %w", err)
	}

	d.logger.Info("backup created",
		"path", backupPath,
		"corpus_snapshots", meta.CorpusSnapshotCount,
		"predictions", meta.PredictionCount,
		"size_mb", float64(meta.DatabaseSize)/(1024*1024),
	)

	return backupPath, meta, nil
}

// RestoreBackup restores a database from a backup archive. The current
// database must be closed before calling this.
func RestoreBackup(backupPath, dataDir string) (*BackupMetadata, error) {
	backupFile, err := os.Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer backupFile.Close()

	gzReader, err := gzip.NewReader(backupFile)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	var meta *BackupMetadata
	var dbData []byte

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}

		switch header.Name {
		case "harmonia.db":
			dbData, err = io.ReadAll(tarReader)
			if err != nil {
				return nil, fmt.Errorf("read db data: %w", err)
			}
		case "backup-metadata.json":
			metaData, err := io.ReadAll(tarReader)
			if err != nil {
				return nil, fmt.Errorf("read metadata: %w", err)
			}
			meta = &BackupMetadata{}
			if err := json.Unmarshal(metaData, meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
	}

	if dbData == nil {
		return nil, fmt.Errorf("backup does not contain database file")
	}

	if meta != nil && meta.Checksum != "" {
		hash := sha256.Sum256(dbData)
		actualChecksum := hex.EncodeToString(hash[:])
		if actualChecksum != meta.Checksum {
			return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", meta.Checksum, actualChecksum)
		}
	}

	existingDB := filepath.Join(dataDir, "harmonia.db")
	if _, err := os.Stat(existingDB); err == nil {
		backupName := fmt.Sprintf("harmonia.db.backup-%s", time.Now().Format("20060102-150405"))
		if err := os.Rename(existingDB, filepath.Join(dataDir, backupName)); err != nil {
			return nil, fmt.Errorf("backup existing db: %w", err)
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(existingDB, dbData, 0644); err != nil {
		return nil, fmt.Errorf("write restored db: %w", err)
	}

	return meta, nil
}

// VacuumDatabase optimizes the database and reclaims space.
func (d *DB) VacuumDatabase() error {
	if _, err := d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		d.logger.Warn("WAL checkpoint failed", "error", err)
	}
	if _, err := d.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	if _, err := d.db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	d.logger.Info("database vacuum complete")
	return nil
}

// IntegrityCheck performs a database integrity check.
func (d *DB) IntegrityCheck() error {
	row := d.db.QueryRow("PRAGMA integrity_check")
	var result string
	if err := row.Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	d.logger.Info("database integrity check passed")
	return nil
}

// addFileToTar adds a file to the tar archive and returns its SHA256 checksum.
func addFileToTar(tw *tar.Writer, srcPath, destName string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}

	header := &tar.Header{
		Name:    destName,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}

	if err := tw.WriteHeader(header); err != nil {
		return "", err
	}

	hasher := sha256.New()
	teeReader := io.TeeReader(file, hasher)

	if _, err := io.Copy(tw, teeReader); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

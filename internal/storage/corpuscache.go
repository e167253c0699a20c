package storage

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aftertouch/harmonia/internal/modelset"
)

// CorpusSnapshot is the metadata of a gob-encoded modelset.ModelSet cached
// under the content hash of the corpus source tree it was built from, so a
// server restart against an unchanged corpus skips re-parsing and
// re-counting every song. The encoded ModelSet itself is not a field here.
type CorpusSnapshot struct {
	Hash       string
	ChordCount int
	SongCount  int
	CreatedAt  time.Time
}

// HashCorpusSources derives the cache key from the concatenated byte content
// of every corpus source file, in a stable (caller-supplied) order.
func HashCorpusSources(contents [][]byte) string {
	h := sha256.New()
	for _, c := range contents {
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PutCorpusSnapshot gob-encodes a built ModelSet and stores it keyed by hash.
// A snapshot already present under the same hash is left untouched.
func (d *DB) PutCorpusSnapshot(hash string, ms modelset.ModelSet, songCount int) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ms); err != nil {
		return fmt.Errorf("encode corpus snapshot: %w", err)
	}
	data := buf.Bytes()

	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO corpus_snapshots (hash, chord_count, song_count, data, size)
		VALUES (?, ?, ?, ?, ?)
	`, hash, len(ms.AllChords), songCount, data, len(data))
	if err != nil {
		return fmt.Errorf("store corpus snapshot: %w", err)
	}
	return nil
}

// GetCorpusSnapshot decodes a previously cached ModelSet by content hash.
func (d *DB) GetCorpusSnapshot(hash string) (modelset.ModelSet, bool, error) {
	var data []byte
	row := d.db.QueryRow("SELECT data FROM corpus_snapshots WHERE hash = ?", hash)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return modelset.ModelSet{}, false, nil
		}
		return modelset.ModelSet{}, false, fmt.Errorf("query corpus snapshot: %w", err)
	}

	var ms modelset.ModelSet
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ms); err != nil {
		return modelset.ModelSet{}, false, fmt.Errorf("decode corpus snapshot: %w", err)
	}
	return ms, true, nil
}

// ListCorpusSnapshots returns metadata for every cached snapshot, newest first.
func (d *DB) ListCorpusSnapshots() ([]CorpusSnapshot, error) {
	rows, err := d.db.Query(`
		SELECT hash, chord_count, song_count, created_at
		FROM corpus_snapshots ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []CorpusSnapshot
	for rows.Next() {
		var s CorpusSnapshot
		var createdAt time.Time
		if err := rows.Scan(&s.Hash, &s.ChordCount, &s.SongCount, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = createdAt
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

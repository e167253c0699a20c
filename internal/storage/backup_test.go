package storage

import (
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/aftertouch/harmonia/internal/song"
)

func TestDatabaseInfoCountsRows(t *testing.T) {
	db := openTestDB(t)

	maj := func(root int) chord.Chord { return chord.NewChord(root, chord.RelativeChord{Quality: chord.Maj}) }
	measure := func(c chord.Chord) song.Measure { return song.Measure{Chord: c, Reps: 1} }
	songs := []song.Song{{Measures: []song.Measure{measure(maj(0)), measure(maj(7))}}}
	ms := modelset.Build(songs, nil, nil)
	if err := db.PutCorpusSnapshot(HashCorpusSources([][]byte{[]byte("a")}), ms, 1); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}

	meta, err := db.DatabaseInfo()
	if err != nil {
		t.Fatalf("DatabaseInfo: %v", err)
	}
	if meta.CorpusSnapshotCount != 1 {
		t.Errorf("CorpusSnapshotCount = %d, want 1", meta.CorpusSnapshotCount)
	}
	if meta.PredictionCount != 0 {
		t.Errorf("PredictionCount = %d, want 0", meta.PredictionCount)
	}
}

func TestCreateAndRestoreBackup(t *testing.T) {
	db := openTestDB(t)
	ms := modelset.Build(nil, nil, nil)
	if err := db.PutCorpusSnapshot(HashCorpusSources([][]byte{[]byte("a")}), ms, 0); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}

	backupDir := t.TempDir()
	path, meta, err := db.CreateBackup(backupDir)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if meta.Checksum == "" {
		t.Errorf("expected a non-empty checksum")
	}

	restoreDir := t.TempDir()
	restoredMeta, err := RestoreBackup(path, restoreDir)
	if err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}
	if restoredMeta.CorpusSnapshotCount != meta.CorpusSnapshotCount {
		t.Errorf("restored CorpusSnapshotCount = %d, want %d", restoredMeta.CorpusSnapshotCount, meta.CorpusSnapshotCount)
	}
}

func TestIntegrityCheckPasses(t *testing.T) {
	db := openTestDB(t)
	if err := db.IntegrityCheck(); err != nil {
		t.Errorf("IntegrityCheck: %v", err)
	}
}

package storage

import (
	"log/slog"
	"os"
	"testing"

	"github.com/aftertouch/harmonia/internal/chord"
	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/aftertouch/harmonia/internal/song"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCorpusSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	maj := func(root int) chord.Chord { return chord.NewChord(root, chord.RelativeChord{Quality: chord.Maj}) }
	measure := func(c chord.Chord) song.Measure { return song.Measure{Chord: c, Reps: 1} }
	songs := []song.Song{{Measures: []song.Measure{measure(maj(0)), measure(maj(7)), measure(maj(0))}}}
	ms := modelset.Build(songs, nil, nil)

	hash := HashCorpusSources([][]byte{[]byte("one song, one hash")})
	if err := db.PutCorpusSnapshot(hash, ms, len(songs)); err != nil {
		t.Fatalf("put snapshot: %v", err)
	}

	got, ok, err := db.GetCorpusSnapshot(hash)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cached snapshot under hash %q", hash)
	}
	if len(got.AllChords) != len(ms.AllChords) {
		t.Errorf("AllChords len = %d, want %d", len(got.AllChords), len(ms.AllChords))
	}

	if _, ok, err := db.GetCorpusSnapshot("no-such-hash"); err != nil || ok {
		t.Errorf("expected a clean miss for an unknown hash, got ok=%v err=%v", ok, err)
	}

	snapshots, err := db.ListCorpusSnapshots()
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 listed snapshot, got %d", len(snapshots))
	}
	if snapshots[0].SongCount != 1 {
		t.Errorf("SongCount = %d, want 1", snapshots[0].SongCount)
	}
}

func TestPutCorpusSnapshotIgnoresDuplicateHash(t *testing.T) {
	db := openTestDB(t)
	ms := modelset.Build(nil, nil, nil)
	hash := HashCorpusSources([][]byte{[]byte("x")})

	if err := db.PutCorpusSnapshot(hash, ms, 0); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := db.PutCorpusSnapshot(hash, ms, 0); err != nil {
		t.Fatalf("second put (same hash) should be a no-op, not an error: %v", err)
	}
	snapshots, err := db.ListCorpusSnapshots()
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("expected exactly 1 row after inserting the same hash twice, got %d", len(snapshots))
	}
}

// Command corpusbuild parses the Rock Corpus, MARG, and ABC source trees
// into a cached ModelSet ahead of time, and can report a chord-type
// tabulation of the Rock Corpus for diagnostic purposes.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/aftertouch/harmonia/internal/corpus/abc"
	"github.com/aftertouch/harmonia/internal/corpus/marg"
	"github.com/aftertouch/harmonia/internal/corpus/rock"
	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/aftertouch/harmonia/internal/storage"
)

func main() {
	fs := flag.NewFlagSet("corpusbuild", flag.ExitOnError)
	corpusDir := fs.String("corpus-dir", ".", "directory containing rock-corpus/, marg/, and abc/ subdirectories")
	dataDir := fs.String("data-dir", ".", "data directory holding the SQLite cache")
	stats := fs.Bool("stats", false, "tabulate Rock Corpus chord types instead of building a model")
	countReps := fs.Bool("count-reps", false, "when -stats, count a held chord once per measure rather than once per appearance")
	fs.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	rockDir := *corpusDir + "/rock-corpus"
	margDir := *corpusDir + "/marg"
	abcDir := *corpusDir + "/abc"

	if *stats {
		if err := runStats(rockDir, *countReps); err != nil {
			logger.Error("tabulation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	rockSongs, err := rock.LoadDir(rockDir)
	if err != nil {
		logger.Error("failed to load rock corpus", "error", err)
		os.Exit(1)
	}
	margSongs, err := marg.LoadDir(margDir)
	if err != nil {
		logger.Error("failed to load marg corpus", "error", err)
		os.Exit(1)
	}
	abcSongs, err := abc.LoadDir(abcDir)
	if err != nil {
		logger.Error("failed to load abc corpus", "error", err)
		os.Exit(1)
	}

	logger.Info("parsed corpora", "rock_songs", len(rockSongs), "marg_songs", len(margSongs), "abc_songs", len(abcSongs))

	ms := modelset.Build(rockSongs, abcSongs, margSongs)
	logger.Info("built model set", "chords", len(ms.AllChords))

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := storage.Open(*dataDir, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sources, err := corpusSourceDigest(rockDir, margDir, abcDir)
	if err != nil {
		logger.Error("failed to digest corpus sources", "error", err)
		os.Exit(1)
	}
	hash := storage.HashCorpusSources(sources)
	songCount := len(rockSongs) + len(margSongs) + len(abcSongs)
	if err := db.PutCorpusSnapshot(hash, ms, songCount); err != nil {
		logger.Error("failed to cache model set", "error", err)
		os.Exit(1)
	}
	logger.Info("cached model set", "hash", hash)
}

// runStats prints the Rock Corpus chord-type tabulation, the supplemented
// diagnostic corpus/rs/convert.py exposes as tabulate_chord_types.
func runStats(rockDir string, countReps bool) error {
	counts, err := rock.TabulateChordTypes(rockDir, countReps)
	if err != nil {
		return fmt.Errorf("tabulate rock chord types: %w", err)
	}

	type kv struct {
		label string
		count int
	}
	rows := make([]kv, 0, len(counts))
	for label, count := range counts {
		rows = append(rows, kv{label, count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].label < rows[j].label
	})

	for _, r := range rows {
		fmt.Printf("%-20s %d\n", r.label, r.count)
	}
	return nil
}

func corpusSourceDigest(dirs ...string) ([][]byte, error) {
	var out [][]byte
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, e os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if e.IsDir() {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			out = append(out, data)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
	}
	return out, nil
}

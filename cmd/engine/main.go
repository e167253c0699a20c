// Command engine serves the chord-recommendation websocket API: it loads
// (or builds and caches) the corpus models, then accepts melody-harmonization
// requests over a long-lived websocket connection per client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/aftertouch/harmonia/internal/auth"
	"github.com/aftertouch/harmonia/internal/config"
	"github.com/aftertouch/harmonia/internal/corpus/abc"
	"github.com/aftertouch/harmonia/internal/corpus/marg"
	"github.com/aftertouch/harmonia/internal/corpus/rock"
	"github.com/aftertouch/harmonia/internal/formatter"
	"github.com/aftertouch/harmonia/internal/modelset"
	"github.com/aftertouch/harmonia/internal/server"
	"github.com/aftertouch/harmonia/internal/song"
	"github.com/aftertouch/harmonia/internal/storage"
	"github.com/aftertouch/harmonia/internal/wsapi"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ms, err := loadModelSet(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build corpus model", "error", err)
		os.Exit(1)
	}

	wsHandler := wsapi.NewHandler(ms, logger)
	wsHandler.OnPredicted = func(req wsapi.Request, resp wsapi.Response) {
		chosen := make([]string, len(resp.Result))
		for i, slot := range resp.Result {
			chosen[i] = slot.Value.Name
		}
		rec := &storage.PredictionRecord{
			Seq:               req.Seq,
			Mode:              req.Mode,
			Minorness:         req.Minorness,
			Jazziness:         req.Jazziness,
			DeterminismWeight: req.DeterminismWeight,
			Seed:              req.Seed,
			SlotCount:         len(resp.Result),
			Request:           req,
			Chosen:            chosen,
		}
		if err := db.LogPrediction(context.Background(), rec); err != nil {
			logger.Warn("failed to log prediction", "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/chords", func(w http.ResponseWriter, r *http.Request) {
		names := make([]string, len(ms.AllChords))
		for i, c := range ms.AllChords {
			names[i] = formatter.ChordName(c, 0)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(names); err != nil {
			logger.Error("failed to encode chord list", "error", err)
		}
	})

	authCfg := auth.Config{Enabled: cfg.AuthEnabled}
	handler := server.Chain(
		server.LoggingMiddleware(logger),
		server.RecoveryMiddleware(logger),
		server.MetricsMiddleware(),
		auth.Middleware(authCfg, logger),
	)(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: handler}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		httpServer.Close()
	}()

	logger.Info("starting engine server",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"corpus_dir", cfg.CorpusDir,
		"auth_enabled", cfg.AuthEnabled,
		"chords", len(ms.AllChords),
	)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadModelSet returns a cached ModelSet if one matching the current corpus
// sources already exists in the database, otherwise parses the corpus
// directories, builds the models, and caches the result for next startup.
func loadModelSet(cfg config.Config, db *storage.DB, logger *slog.Logger) (modelset.ModelSet, error) {
	rockDir := cfg.CorpusDir + "/rock-corpus"
	margDir := cfg.CorpusDir + "/marg"
	abcDir := cfg.CorpusDir + "/abc"

	sources, err := corpusSourceDigest(rockDir, margDir, abcDir)
	if err != nil {
		logger.Warn("could not stat corpus sources, skipping cache lookup", "error", err)
	} else {
		hash := storage.HashCorpusSources(sources)
		if cached, ok, err := db.GetCorpusSnapshot(hash); err != nil {
			logger.Warn("corpus snapshot lookup failed", "error", err)
		} else if ok {
			logger.Info("loaded cached corpus model", "hash", hash)
			return cached, nil
		}
	}

	logger.Info("building corpus model from source", "rock_dir", rockDir, "marg_dir", margDir, "abc_dir", abcDir)

	rockSongs, err := rock.LoadDir(rockDir)
	if err != nil {
		return modelset.ModelSet{}, fmt.Errorf("load rock corpus: %w", err)
	}
	margSongs, err := marg.LoadDir(margDir)
	if err != nil {
		return modelset.ModelSet{}, fmt.Errorf("load marg corpus: %w", err)
	}
	abcSongs, err := abc.LoadDir(abcDir)
	if err != nil {
		return modelset.ModelSet{}, fmt.Errorf("load abc corpus: %w", err)
	}

	ms := modelset.Build(rockSongs, abcSongs, margSongs)

	if sources != nil {
		hash := storage.HashCorpusSources(sources)
		songCount := countSongs(rockSongs, margSongs, abcSongs)
		if err := db.PutCorpusSnapshot(hash, ms, songCount); err != nil {
			logger.Warn("failed to cache corpus model", "error", err)
		}
	}

	return ms, nil
}

func countSongs(sets ...[]song.Song) int {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	return n
}

// corpusSourceDigest reads every file under the three corpus directories so
// their combined bytes can be hashed into a cache key; a change to any
// source file invalidates the cache.
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

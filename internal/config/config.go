package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the engine's tunable settings: flags override a TOML file,
// and the TOML file overrides the built-in defaults.
type Config struct {
	// Server settings
	Port     int    `toml:"port"`
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`

	// Corpus settings
	CorpusDir string `toml:"corpus_dir"`

	// Auth settings
	AuthEnabled bool `toml:"auth_enabled"`

	// Recommendation-engine tuning defaults. They are loaded and validated
	// here; no command in this module reads them yet (cmd/midipreview has
	// its own flags, and the websocket handler its own defaults).
	NumberOfRecommendations  int     `toml:"number_of_recommendations"`
	DefaultJazziness         float64 `toml:"default_jazziness"`
	DefaultFirstNoteWeight   float64 `toml:"default_first_note_weight"`
	DefaultDeterminismWeight float64 `toml:"default_determinism_weight"`
	DefaultBottomBass        int     `toml:"default_bottom_bass"`
}

// Default returns the built-in configuration, matching spec.md §4's stated
// defaults (K=10, jazziness=0, first_note_weight=1.0, determinism_weight=1.0)
// plus spec.md §6's end-to-end scenario default of bottomBass=48.
func Default() Config {
	return Config{
		Port:                     8080,
		DataDir:                  defaultDataDir(),
		LogLevel:                 "info",
		CorpusDir:                defaultDataDir() + "/corpus",
		AuthEnabled:              false,
		NumberOfRecommendations:  10,
		DefaultJazziness:         0,
		DefaultFirstNoteWeight:   1.0,
		DefaultDeterminismWeight: 1.0,
		DefaultBottomBass:        48,
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error;
// the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Parse builds the final Config from a TOML file (if -config names one) and
// command-line flags, flags taking precedence over the file and the file
// taking precedence over Default().
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("harmonia", flag.ContinueOnError)

	configPath := fs.String("config", "", "path to a TOML config file")
	port := fs.Int("port", 0, "HTTP server port (0 = use config/default)")
	dataDir := fs.String("data-dir", "", "data directory for SQLite and corpus cache")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	corpusDir := fs.String("corpus-dir", "", "directory containing the Rock Corpus/ABC/MARG source trees")
	authEnabled := fs.Bool("auth", false, "enable API authentication (default: open for local use)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *corpusDir != "" {
		cfg.CorpusDir = *corpusDir
	}
	if *authEnabled {
		cfg.AuthEnabled = true
	}

	return cfg, nil
}

func defaultDataDir() string {
	if dir := os.Getenv("HARMONIA_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".harmonia"
	}
	return home + "/.harmonia"
}

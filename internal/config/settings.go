package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/citecheck/internal/bibliography"
	"github.com/matsen/citecheck/internal/scholar"
	"github.com/matsen/citecheck/internal/verify"
)

const (
	// DataDirName is the directory name under XDG_DATA_HOME.
	DataDirName = "citecheck"
	// CacheDir holds per-document CSV caches inside the data directory.
	CacheDir = "cache"
	// HistoryDBFile is the run history database inside the data directory.
	HistoryDBFile = "history.db"
)

// Settings are the effective values for a run: defaults, overridden by the
// global config file, overridden by the environment. Command-line flags are
// applied on top by the caller.
type Settings struct {
	S2APIKey           string        `json:"-"`
	Threshold          int           `json:"threshold"`
	ChallengeWait      time.Duration `json:"challenge_wait"`
	RenderTimeout      time.Duration `json:"render_timeout"`
	ContinuationIndent int           `json:"continuation_indent"`
	DataDir            string        `json:"data_dir"`
	DisableScholar     bool          `json:"disable_scholar"`
	UserAgent          string        `json:"user_agent"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Threshold:          verify.DefaultThreshold,
		ChallengeWait:      scholar.DefaultChallengeWait,
		RenderTimeout:      scholar.DefaultRenderTimeout,
		ContinuationIndent: bibliography.DefaultContinuationIndent,
		DataDir:            DefaultDataDir(),
		UserAgent:          scholar.DefaultUserAgent,
	}
}

// Resolve merges the defaults, the global config file and the environment
// (S2_API_KEY, CITECHECK_DATA_DIR).
func Resolve() (Settings, error) {
	s := Defaults()

	cfg, err := LoadGlobalConfig()
	if err != nil {
		return s, err
	}
	s.apply(cfg)

	if key := os.Getenv("S2_API_KEY"); key != "" {
		s.S2APIKey = key
	}
	if dir := os.Getenv("CITECHECK_DATA_DIR"); dir != "" {
		s.DataDir = ExpandPath(dir)
	}

	return s, nil
}

func (s *Settings) apply(cfg *GlobalConfig) {
	if cfg.S2APIKey != "" {
		s.S2APIKey = cfg.S2APIKey
	}
	if cfg.Threshold != nil {
		s.Threshold = *cfg.Threshold
	}
	if cfg.ChallengeWait != nil {
		s.ChallengeWait = *cfg.ChallengeWait
	}
	if cfg.RenderTimeout > 0 {
		s.RenderTimeout = cfg.RenderTimeout
	}
	if cfg.ContinuationIndent > 0 {
		s.ContinuationIndent = cfg.ContinuationIndent
	}
	if cfg.DataDir != "" {
		s.DataDir = cfg.DataDir
	}
	if cfg.DisableScholar {
		s.DisableScholar = true
	}
	if cfg.UserAgent != "" {
		s.UserAgent = cfg.UserAgent
	}
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", s.Threshold)
	}
	if s.ContinuationIndent < 1 {
		return fmt.Errorf("continuation indent must be at least 1, got %d", s.ContinuationIndent)
	}
	if s.ChallengeWait < 0 {
		return fmt.Errorf("challenge wait must be non-negative, got %s", s.ChallengeWait)
	}
	if s.RenderTimeout <= 0 {
		return fmt.Errorf("render timeout must be positive, got %s", s.RenderTimeout)
	}
	if s.DataDir == "" {
		return fmt.Errorf("data directory is not set")
	}
	return nil
}

// CachePath returns the directory of the per-document CSV caches.
func (s Settings) CachePath() string {
	return filepath.Join(s.DataDir, CacheDir)
}

// HistoryDBPath returns the path of the run history database.
func (s Settings) HistoryDBPath() string {
	return filepath.Join(s.DataDir, HistoryDBFile)
}

// HasS2APIKey reports whether a Semantic Scholar key is configured.
func (s Settings) HasS2APIKey() bool {
	return s.S2APIKey != ""
}

// DefaultDataDir returns $XDG_DATA_HOME/citecheck, defaulting to
// ~/.local/share/citecheck.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DataDirName
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, DataDirName)
}

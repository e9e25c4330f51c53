package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestResolve_Defaults(t *testing.T) {
	dir := isolate(t)

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.Threshold != 30 {
		t.Errorf("Threshold = %d, want 30", s.Threshold)
	}
	if s.ChallengeWait != 10*time.Second || s.RenderTimeout != 10*time.Second {
		t.Errorf("waits = %s / %s, want 10s / 10s", s.ChallengeWait, s.RenderTimeout)
	}
	if s.ContinuationIndent != 4 {
		t.Errorf("ContinuationIndent = %d, want 4", s.ContinuationIndent)
	}
	if want := filepath.Join(dir, "data", "citecheck"); s.DataDir != want {
		t.Errorf("DataDir = %q, want %q", s.DataDir, want)
	}
	if s.DisableScholar || s.HasS2APIKey() {
		t.Errorf("unexpected settings %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestResolve_Precedence(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "s2_api_key: file-key\nthreshold: 20\ndata_dir: /from/file\n")

	s, err := Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if s.S2APIKey != "file-key" || s.Threshold != 20 || s.DataDir != "/from/file" {
		t.Errorf("file values not applied: %+v", s)
	}

	ResetGlobalConfigCache()
	t.Setenv("S2_API_KEY", "env-key")
	t.Setenv("CITECHECK_DATA_DIR", "/from/env")
	s, err = Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if s.S2APIKey != "env-key" {
		t.Errorf("S2APIKey = %q, want env-key", s.S2APIKey)
	}
	if s.DataDir != "/from/env" {
		t.Errorf("DataDir = %q, want /from/env", s.DataDir)
	}
	if s.Threshold != 20 {
		t.Errorf("Threshold = %d, want file value 20", s.Threshold)
	}
}

func TestResolve_ZeroValuesFromFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "threshold: 0\nchallenge_wait: 0s\n")

	s, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if s.Threshold != 0 {
		t.Errorf("Threshold = %d, want 0 from file", s.Threshold)
	}
	if s.ChallengeWait != 0 {
		t.Errorf("ChallengeWait = %s, want 0s from file", s.ChallengeWait)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestResolve_BadFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "threshold: notanint\n")
	if _, err := Resolve(); err == nil {
		t.Error("Resolve() should fail on unparseable config")
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "negative threshold", mutate: func(s *Settings) { s.Threshold = -1 }},
		{name: "zero indent", mutate: func(s *Settings) { s.ContinuationIndent = 0 }},
		{name: "negative challenge wait", mutate: func(s *Settings) { s.ChallengeWait = -time.Second }},
		{name: "zero render timeout", mutate: func(s *Settings) { s.RenderTimeout = 0 }},
		{name: "no data dir", mutate: func(s *Settings) { s.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			s.DataDir = "/tmp/x"
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Errorf("Validate() accepted %+v", s)
			}
		})
	}
}

func TestSettings_Paths(t *testing.T) {
	s := Settings{DataDir: "/d"}
	if got := s.CachePath(); got != filepath.Join("/d", "cache") {
		t.Errorf("CachePath() = %q", got)
	}
	if got := s.HistoryDBPath(); got != filepath.Join("/d", "history.db") {
		t.Errorf("HistoryDBPath() = %q", got)
	}
}

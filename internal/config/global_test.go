package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config and data directories at a temp dir and clears
// the environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "data"))
	t.Setenv("S2_API_KEY", "")
	t.Setenv("CITECHECK_DATA_DIR", "")
	return tmpDir
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, GlobalConfigDir)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/citecheck/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "citecheck", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	isolate(t)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if *cfg != (GlobalConfig{}) {
		t.Errorf("LoadGlobalConfig() = %+v, want empty", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
s2_api_key: test-s2-key
threshold: 25
challenge_wait: 45s
render_timeout: 3s
continuation_indent: 6
data_dir: ~/citecheck-data
disable_scholar: true
user_agent: TestAgent/1.0
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	if cfg.Threshold == nil || *cfg.Threshold != 25 {
		t.Errorf("Threshold = %v, want 25", cfg.Threshold)
	}
	if cfg.ChallengeWait == nil || *cfg.ChallengeWait != 45*time.Second {
		t.Errorf("ChallengeWait = %v, want 45s", cfg.ChallengeWait)
	}
	rest := *cfg
	rest.Threshold, rest.ChallengeWait = nil, nil
	want := GlobalConfig{
		S2APIKey:           "test-s2-key",
		RenderTimeout:      3 * time.Second,
		ContinuationIndent: 6,
		DataDir:            filepath.Join(home, "citecheck-data"),
		DisableScholar:     true,
		UserAgent:          "TestAgent/1.0",
	}
	if rest != want {
		t.Errorf("LoadGlobalConfig() = %+v, want %+v", rest, want)
	}
}

func TestLoadGlobalConfig_ExplicitZero(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "threshold: 0\nchallenge_wait: 0s\n")

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.Threshold == nil || *cfg.Threshold != 0 {
		t.Errorf("Threshold = %v, want explicit 0", cfg.Threshold)
	}
	if cfg.ChallengeWait == nil || *cfg.ChallengeWait != 0 {
		t.Errorf("ChallengeWait = %v, want explicit 0", cfg.ChallengeWait)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "threshold: [not, a, number")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestLoadGlobalConfig_Cached(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "threshold: 12\n")

	first, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "threshold: 99\n")
	second, _ := LoadGlobalConfig()
	if second != first || *second.Threshold != 12 {
		t.Errorf("second load = %+v, want cached value", second)
	}

	ResetGlobalConfigCache()
	third, _ := LoadGlobalConfig()
	if *third.Threshold != 99 {
		t.Errorf("after reset Threshold = %d, want 99", *third.Threshold)
	}
}

func TestSaveGlobalConfig(t *testing.T) {
	isolate(t)

	threshold, wait := 0, time.Minute
	in := &GlobalConfig{Threshold: &threshold, ChallengeWait: &wait, UserAgent: "Agent/2"}
	if err := SaveGlobalConfig(in); err != nil {
		t.Fatalf("SaveGlobalConfig() error = %v", err)
	}

	out, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if out.Threshold == nil || *out.Threshold != 0 {
		t.Errorf("Threshold = %v, want 0 kept through save", out.Threshold)
	}
	if out.ChallengeWait == nil || *out.ChallengeWait != time.Minute {
		t.Errorf("ChallengeWait = %v, want 1m", out.ChallengeWait)
	}
	if out.UserAgent != "Agent/2" {
		t.Errorf("UserAgent = %q, want Agent/2", out.UserAgent)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Show or set configuration values",
	Long: `Show the effective settings, or get and set values in the config file.

Usage:
  citecheck config                       # Show effective settings
  citecheck config threshold             # Get one value
  citecheck config threshold 25          # Set a value in the config file
  citecheck config challenge-wait 1m

Keys:
  s2-api-key           Semantic Scholar API key (S2_API_KEY overrides it)
  threshold            Distance above which a reference is flagged
  challenge-wait       How long to wait for a Google Scholar challenge
  render-timeout       Timeout for a single Google Scholar page
  continuation-indent  Minimum indentation of a continuation line
  data-dir             Directory for the results cache and history
  disable-scholar      Skip the Google Scholar fallback (true/false)
  user-agent           User-Agent for Google Scholar requests`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// ConfigResponse is the response for the config command without arguments.
type ConfigResponse struct {
	config.Settings
	S2APIKeySet bool   `json:"s2_api_key_set"`
	ConfigPath  string `json:"config_path"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	settings := mustResolveSettings(cmd)

	// No args: show everything
	if len(args) == 0 {
		resp := ConfigResponse{
			Settings:    settings,
			S2APIKeySet: settings.HasS2APIKey(),
			ConfigPath:  config.GlobalConfigPath(),
		}
		if humanOutput {
			outputHuman("config file:          %s\n", resp.ConfigPath)
			outputHuman("s2-api-key:           %s\n", setOrUnset(resp.S2APIKeySet))
			outputHuman("threshold:            %d\n", settings.Threshold)
			outputHuman("challenge-wait:       %s\n", settings.ChallengeWait)
			outputHuman("render-timeout:       %s\n", settings.RenderTimeout)
			outputHuman("continuation-indent:  %d\n", settings.ContinuationIndent)
			outputHuman("data-dir:             %s\n", settings.DataDir)
			outputHuman("disable-scholar:      %t\n", settings.DisableScholar)
			outputHuman("user-agent:           %s\n", settings.UserAgent)
			return nil
		}
		return outputJSON(resp)
	}

	key := normalizeKey(args[0])

	// One arg: get a value
	if len(args) == 1 {
		value, err := settingValue(settings, key)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(StatusResponse{Status: "ok", Key: key, Value: value})
		}
		return nil
	}

	// Two args: set a value in the config file
	current, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	updated := *current
	if err := setConfigValue(&updated, key, args[1]); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := config.SaveGlobalConfig(&updated); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	shown := args[1]
	if key == "s2-api-key" {
		shown = "(hidden)"
	}
	if humanOutput {
		outputHuman("Updated %s to %s\n", key, shown)
	} else {
		outputJSON(StatusResponse{Status: "updated", Key: key, Value: shown, Path: config.GlobalConfigPath()})
	}
	return nil
}

// normalizeKey converts key formats (data-dir, data_dir, DATA_DIR) to the
// hyphenated form.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

// settingValue returns one effective setting as text. The API key itself is
// never printed.
func settingValue(s config.Settings, key string) (string, error) {
	switch key {
	case "s2-api-key":
		return setOrUnset(s.HasS2APIKey()), nil
	case "threshold":
		return strconv.Itoa(s.Threshold), nil
	case "challenge-wait":
		return s.ChallengeWait.String(), nil
	case "render-timeout":
		return s.RenderTimeout.String(), nil
	case "continuation-indent":
		return strconv.Itoa(s.ContinuationIndent), nil
	case "data-dir":
		return s.DataDir, nil
	case "disable-scholar":
		return strconv.FormatBool(s.DisableScholar), nil
	case "user-agent":
		return s.UserAgent, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue parses value and stores it under key in cfg.
func setConfigValue(cfg *config.GlobalConfig, key, value string) error {
	switch key {
	case "s2-api-key":
		cfg.S2APIKey = value
	case "threshold":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("threshold must be a non-negative integer, got %q", value)
		}
		cfg.Threshold = &n
	case "challenge-wait":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("challenge-wait must be a duration such as 30s, got %q", value)
		}
		cfg.ChallengeWait = &d
	case "render-timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("render-timeout must be a positive duration, got %q", value)
		}
		cfg.RenderTimeout = d
	case "continuation-indent":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("continuation-indent must be at least 1, got %q", value)
		}
		cfg.ContinuationIndent = n
	case "data-dir":
		cfg.DataDir = config.ExpandPath(value)
	case "disable-scholar":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("disable-scholar must be true or false, got %q", value)
		}
		cfg.DisableScholar = b
	case "user-agent":
		cfg.UserAgent = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func setOrUnset(set bool) string {
	if set {
		return "set"
	}
	return "unset"
}

// Package cmd provides CLI commands for the ffdl tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/client"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/credentials"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/media"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/pipeline"
)

// CredentialStore is the subset of credentials.Store the commands use.
type CredentialStore interface {
	Resolve(flagValue string) (string, credentials.Source, error)
	Save(apiKey, endpoint string) error
	Load() (string, error)
	LoadMetadata() (*credentials.Metadata, error)
	Delete() error
	Exists() bool
}

// CommandDeps holds the dependencies shared by the ffdl subcommands.
type CommandDeps struct {
	// Config is set by the root command after flags are applied. When nil,
	// LoadConfig is called.
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)
	SaveConfig func(*config.CLIConfig) error

	// NewFetcher builds the transcript source for an API key.
	NewFetcher func(cfg *config.CLIConfig, apiKey string) (pipeline.Fetcher, error)
	// NewMedia builds the media retriever.
	NewMedia func(cfg *config.CLIConfig) pipeline.MediaFetcher

	// Credentials opens the API key store.
	Credentials func() (CredentialStore, error)

	// ReadSecret prompts for hidden input.
	ReadSecret func(prompt string) (string, error)

	Logger logging.Logger
	Out    io.Writer
	Err    io.Writer
}

// DefaultDeps returns the default dependencies for production use.
func DefaultDeps() *CommandDeps {
	return &CommandDeps{
		LoadConfig: config.LoadConfig,
		SaveConfig: config.SaveConfig,
		NewFetcher: func(cfg *config.CLIConfig, apiKey string) (pipeline.Fetcher, error) {
			return client.NewFromConfig(cfg, apiKey)
		},
		NewMedia: func(cfg *config.CLIConfig) pipeline.MediaFetcher {
			return media.NewDownloader(media.Options{RetryMax: cfg.RetryMax})
		},
		Credentials: func() (CredentialStore, error) {
			return credentials.NewStore()
		},
		ReadSecret: readSecret,
		Out:        os.Stdout,
		Err:        os.Stderr,
	}
}

func (d *CommandDeps) config() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg
	return cfg, nil
}

func (d *CommandDeps) logger() logging.Logger {
	if d.Logger == nil {
		return logging.NewNopLogger()
	}
	return d.Logger
}

func (d *CommandDeps) stdout() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *CommandDeps) stderr() io.Writer {
	if d.Err == nil {
		return os.Stderr
	}
	return d.Err
}

// outputFormat picks the flag value when set, otherwise the configured default.
func outputFormat(flag string, cfg *config.CLIConfig) (config.OutputFormat, error) {
	if flag == "" {
		return cfg.OutputFormat, nil
	}
	f := config.OutputFormat(flag)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format %q: must be text, json, or yaml", flag)
	}
	return f, nil
}

// WriteStructured encodes v as JSON or YAML. It reports false for text output.
func WriteStructured(w io.Writer, format config.OutputFormat, v interface{}) (bool, error) {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

// formatDurationMs formats milliseconds as a human-readable duration.
func formatDurationMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%.1fm", float64(ms)/60000)
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

// formatMeetingLength renders a Fireflies duration, which is given in minutes.
func formatMeetingLength(minutes float64) string {
	if minutes <= 0 {
		return "-"
	}
	d := time.Duration(minutes * float64(time.Minute)).Round(time.Second)
	return d.String()
}

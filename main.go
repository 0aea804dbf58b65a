// Package main provides the ffdl CLI entry point.
// ffdl downloads Fireflies.ai meeting transcripts and writes them to disk as
// JSON, CSV, PDF, DOCX and SRT files alongside the meeting audio and video.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/cmd"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/buildinfo"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
)

// Global flags and state.
var (
	envFile   string
	configDir string
	timeout   time.Duration
	logFormat string
	debug     bool

	// deps is shared by every subcommand; PersistentPreRunE fills in the
	// loaded configuration and logger.
	deps = cmd.DefaultDeps()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ffdl",
	Short: "Fireflies.ai download utility",
	Long: `ffdl downloads meeting transcripts from Fireflies.ai and writes them to disk.

For every transcript it stores the audio and video recordings, the sentence
list as JSON and CSV, a segmented summary, a PDF and a Word document, and an
SRT subtitle file. Files land in <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/ and
are named after the sanitized meeting title.

COMMON WORKFLOWS:
  Store your key:      ffdl auth login
  See what's there:    ffdl list
  Export latest:       ffdl export
  Export everything:   ffdl export --all --limit 50

The API key is read from --api-key, then FIREFLIES_API_KEY (a .env file in
the working directory is loaded automatically), then the system keyring.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Skip initialization for commands that don't need it.
		if c.Name() == "version" || c.Name() == "help" || c.Name() == "completion" {
			return nil
		}
		// config subcommands must work even when the file fails validation.
		if c.Parent() != nil && c.Parent().Name() == "config" {
			return prepareEnv(c)
		}
		return initialize(c)
	},
}

// initialize loads .env and the configuration, applies global flags, and
// builds the logger.
func initialize(c *cobra.Command) error {
	if err := prepareEnv(c); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Override with command-line flags.
	if timeout != 0 {
		cfg.Timeout = timeout
	}
	if logFormat != "" {
		cfg.LogFormat = config.LogFormat(logFormat)
	}
	if debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps.Config = cfg
	deps.Logger = newLogger(cfg)
	deps.Logger.Debug("Configuration loaded",
		logging.F("command", c.CommandPath()),
		logging.F("endpoint", cfg.APIEndpoint),
		logging.F("output_dir", cfg.OutputDir))
	return nil
}

// prepareEnv loads the env file and points config loading at --config-dir.
func prepareEnv(c *cobra.Command) error {
	if err := loadEnvFile(envFile, c.Root().PersistentFlags().Changed("env-file")); err != nil {
		return err
	}
	if configDir != "" {
		if err := os.Setenv("FFDL_CONFIG_DIR", configDir); err != nil {
			return fmt.Errorf("setting config directory: %w", err)
		}
	}
	return nil
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables that are
// already set. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return fmt.Errorf("loading env file %s: %w", path, err)
}

func newLogger(cfg *config.CLIConfig) logging.Logger {
	lc := logging.DefaultConfig()
	lc.JSONFormat = cfg.LogFormat == config.LogFormatJSON
	if cfg.Debug {
		lc.Level = logging.LevelDebug
	}
	return logging.NewLogger(lc)
}

// Version command flags.
var versionOutput string

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of ffdl.

Examples:
  ffdl version
  ffdl version -o json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("ffdl")
		out := c.OutOrStdout()

		switch config.OutputFormat(versionOutput) {
		case config.OutputFormatJSON, config.OutputFormatYAML:
			_, err := cmd.WriteStructured(out, config.OutputFormat(versionOutput), info)
			return err
		case "", config.OutputFormatText:
		default:
			return fmt.Errorf("invalid output format %q: must be text, json, or yaml", versionOutput)
		}

		fmt.Fprintf(out, "ffdl version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		fmt.Fprintf(out, "  platform:   %s\n", info.Platform)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the ffdl configuration file.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration (file, environment, and flags combined).`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg := deps.Config
		if cfg == nil {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
		}

		configPath, _ := config.ConfigPath()
		out := c.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:    %s\n", configPath)
		fmt.Fprintf(out, "  API endpoint:   %s\n", cfg.APIEndpoint)
		fmt.Fprintf(out, "  Output dir:     %s\n", cfg.OutputDir)
		fmt.Fprintf(out, "  Timeout:        %s\n", cfg.Timeout)
		fmt.Fprintf(out, "  Page size:      %d\n", cfg.PageSize)
		fmt.Fprintf(out, "  Retry max:      %d\n", cfg.RetryMax)
		fmt.Fprintf(out, "  Formats:        %v\n", cfg.Formats)
		fmt.Fprintf(out, "  Download media: %t\n", cfg.DownloadMedia)
		fmt.Fprintf(out, "  Output format:  %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Log format:     %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "  Debug:          %t\n", cfg.Debug)
		fmt.Fprintf(out, "  Events:         %s\n", valueOrDefault(cfg.Events.RedisAddr, "(disabled)"))
		fmt.Fprintf(out, "  Run log:        %s\n", enabledString(cfg.RunLog.Enabled()))
		fmt.Fprintf(out, "  Metrics file:   %s\n", valueOrDefault(cfg.MetricsFile, "(not set)"))
		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}
		out := c.OutOrStdout()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(out, "Use 'ffdl config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
		fmt.Fprintln(out, "\nDefault settings:")
		fmt.Fprintf(out, "  API endpoint:   %s\n", defaultCfg.APIEndpoint)
		fmt.Fprintf(out, "  Output dir:     %s\n", defaultCfg.OutputDir)
		fmt.Fprintf(out, "  Timeout:        %s\n", defaultCfg.Timeout)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  api_endpoint       - Fireflies GraphQL endpoint
  output_dir         - Root directory for exported files (supports ~)
  timeout            - Per-request timeout for Fireflies API calls (e.g., 30s, 5m)
  page_size          - Transcripts per page
  retry_max          - Retries for transient HTTP failures
  formats            - Comma-separated artifact writers (json,summary,csv,pdf,docx,srt)
  download_media     - Download audio and video (true/false)
  output_format      - Default output format (text, json, yaml)
  log_format         - Log format on stderr (console, json)
  debug              - Enable debug logging (true/false)
  events.redis_addr  - Redis address for export events (empty disables)
  events.channel     - Redis channel for export events
  events.kafka_brokers - Comma-separated Kafka brokers (empty disables)
  events.kafka_topic - Kafka topic for export events
  runlog.dsn         - PostgreSQL DSN for run history (empty disables)
  metrics_file       - Prometheus textfile path (empty disables)

Examples:
  ffdl config set output_dir ~/Meetings
  ffdl config set formats json,srt
  ffdl config set download_media false`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		currentCfg, err := config.LoadConfig()
		if err != nil {
			// If config doesn't exist or is broken, start with defaults.
			currentCfg = config.DefaultConfig()
		}

		if err := setConfigValue(currentCfg, key, value); err != nil {
			return err
		}
		if err := currentCfg.Validate(); err != nil {
			return err
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(c.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// setConfigValue applies one key=value pair to cfg.
func setConfigValue(cfg *config.CLIConfig, key, value string) error {
	switch key {
	case "api_endpoint":
		cfg.APIEndpoint = value
	case "output_dir":
		if _, err := config.ExpandPath(value); err != nil {
			return fmt.Errorf("invalid output dir: %w", err)
		}
		cfg.OutputDir = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		cfg.Timeout = d
	case "page_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid page_size value: %w", err)
		}
		cfg.PageSize = n
	case "retry_max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retry_max value: %w", err)
		}
		cfg.RetryMax = n
	case "formats":
		cfg.Formats = config.SplitList(value)
	case "download_media":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid download_media value: %s (must be true or false)", value)
		}
		cfg.DownloadMedia = b
	case "output_format":
		format := config.OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		cfg.OutputFormat = format
	case "log_format":
		lf := config.LogFormat(value)
		if !lf.IsValid() {
			return fmt.Errorf("invalid log format: %s (must be console or json)", value)
		}
		cfg.LogFormat = lf
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
		}
		cfg.Debug = b
	case "events.redis_addr":
		cfg.Events.RedisAddr = value
	case "events.channel":
		cfg.Events.Channel = value
	case "events.kafka_brokers":
		cfg.Events.KafkaBrokers = config.SplitList(value)
	case "events.kafka_topic":
		cfg.Events.KafkaTopic = value
	case "runlog.dsn":
		cfg.RunLog.DSN = value
	case "metrics_file":
		cfg.MetricsFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for ffdl.

Bash:
  $ source <(ffdl completion bash)

Zsh:
  $ ffdl completion zsh > "${fpath[1]}/_ffdl"

Fish:
  $ ffdl completion fish | source

PowerShell:
  PS> ffdl completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		out := c.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading configuration")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.ffdl)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request API timeout (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format on stderr: console, json")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Output format: text, json, yaml")

	rootCmd.AddCommand(cmd.NewExportCommand(deps))
	rootCmd.AddCommand(cmd.NewListCommand(deps))
	rootCmd.AddCommand(cmd.NewAuthCommand(deps))
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

func main() {
	// Set up signal handling; the pipeline stops between steps once ctx is done.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing current step...")
		cancel()
		<-sigChan
		os.Exit(130)
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

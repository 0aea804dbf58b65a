package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/events"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/export"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/pipeline"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/runlog"
)

// ErrExportFailures is returned when at least one transcript did not export.
var ErrExportFailures = errors.New("some transcripts failed to export")

// exportFlags holds the flag values for one export invocation.
type exportFlags struct {
	apiKey    string
	outputDir string
	limit     int
	skip      int
	all       bool
	formats   []string
	noMedia   bool
	dryRun    bool
	output    string
}

// NewExportCommand creates the export command.
func NewExportCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download transcripts and write every artifact",
		Long: `Fetch transcripts from Fireflies and write, per transcript:

  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.mp3           audio
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.mp4           video
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.json          sentences
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.summary.json  segmented summary/notes
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.csv           sentence table
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.pdf           printable transcript
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.docx          Word transcript
  <output>/<YYYY-MM-DD>/<HH:MM:SS.mmm>/<title>.srt           subtitles

The date and time directories come from the meeting start (UTC) and <title>
is the sanitized meeting title. Transcripts without a date are written under
<output>/downloads/<title>.

A failure stops the remaining steps of that transcript only; the command exits
non-zero when any transcript failed. On Ctrl-C, transcripts not yet started are
listed as not run.

Examples:
  # Export the most recent transcript
  ffdl export

  # Export the 10 most recent transcripts as JSON and SRT only
  ffdl export --limit 10 --formats json,srt

  # Walk every page, without audio/video
  ffdl export --all --limit 50 --no-media

  # Show what would be written
  ffdl export --limit 5 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				flags.limit = 0
			}
			return runExport(cmd.Context(), deps, flags)
		},
	}

	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "Fireflies API key (overrides FIREFLIES_API_KEY and the keyring)")
	cmd.Flags().StringVarP(&flags.outputDir, "output-dir", "d", "", "Root directory for exported files")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", config.DefaultPageSize, "Transcripts per page")
	cmd.Flags().IntVar(&flags.skip, "skip", 0, "Number of transcripts to skip")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Keep fetching pages until the last one")
	cmd.Flags().StringSliceVar(&flags.formats, "formats", nil, "Artifact writers to run: "+strings.Join(export.Names(), ","))
	cmd.Flags().BoolVar(&flags.noMedia, "no-media", false, "Skip audio and video downloads")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Resolve paths and print them without writing")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Report format: text, json, yaml")

	return cmd
}

func runExport(ctx context.Context, deps *CommandDeps, flags *exportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := deps.logger()

	cfg, err := deps.config()
	if err != nil {
		return err
	}

	format, err := outputFormat(flags.output, cfg)
	if err != nil {
		return err
	}

	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}
	if len(flags.formats) > 0 {
		cfg.Formats = flags.formats
	}
	if flags.noMedia {
		cfg.DownloadMedia = false
	}
	if flags.limit < 0 || flags.skip < 0 {
		return fmt.Errorf("%w: --limit and --skip must not be negative", fferrors.ErrValidation)
	}
	limit := flags.limit
	if limit == 0 {
		limit = cfg.PageSize
	}

	exporters, err := export.Select(cfg.Formats)
	if err != nil {
		return err
	}

	root, err := cfg.ResolvedOutputDir()
	if err != nil {
		return err
	}

	store, err := deps.Credentials()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}
	apiKey, source, err := store.Resolve(flags.apiKey)
	if err != nil {
		return fmt.Errorf("%w: pass --api-key, set FIREFLIES_API_KEY, or run 'ffdl auth login'", err)
	}
	log.Debug("Resolved API key", logging.F("source", string(source)))

	fetcher, err := deps.NewFetcher(cfg, apiKey)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	opts := pipeline.Options{
		Root:      root,
		Exporters: exporters,
		DryRun:    flags.dryRun,
		Logger:    log,
	}
	if cfg.DownloadMedia {
		opts.Media = deps.NewMedia(cfg)
	}

	if !flags.dryRun {
		if sinks := openEventSinks(ctx, cfg, log); len(sinks) > 0 {
			defer sinks.Close()
			opts.Publisher = sinks
		}
		if cfg.RunLog.Enabled() {
			rl, err := runlog.Open(ctx, cfg.RunLog.DSN)
			if err != nil {
				log.Warn("Run log disabled", logging.Err(err))
			} else {
				defer rl.Close()
				opts.Recorder = rl
			}
		}
	}

	p := pipeline.New(opts)
	report, runErr := p.Export(ctx, fetcher, pipeline.PageRequest{
		Limit: limit,
		Skip:  flags.skip,
		All:   flags.all,
	})

	if cfg.MetricsFile != "" && !flags.dryRun {
		if err := p.Metrics().WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("Could not write metrics file", logging.Err(err), logging.F("path", cfg.MetricsFile))
		}
	}

	if report != nil {
		if err := outputReport(deps.stdout(), format, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if runErr != nil {
		code := fferrors.CodeOf(runErr)
		fmt.Fprintf(deps.stderr(), "Hint: %s\n", fferrors.GetSuggestedAction(code))
		return runErr
	}
	if report.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrExportFailures, len(report.Results)-report.Exported(), len(report.Results))
	}
	return nil
}

func outputReport(w io.Writer, format config.OutputFormat, report *pipeline.Report) error {
	if handled, err := WriteStructured(w, format, report); handled {
		return err
	}
	return outputReportText(w, report)
}

func outputReportText(w io.Writer, report *pipeline.Report) error {
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No transcripts found.")
		return nil
	}

	if report.DryRun {
		fmt.Fprintln(w, "Dry run: nothing was written.")
	}

	for _, res := range report.Results {
		status := "ok"
		switch {
		case res.NotRun:
			status = "not run"
		case !res.OK():
			status = "failed"
		}
		fmt.Fprintf(w, "\n[%s] %s  %s\n", status, res.TranscriptID, res.Title)
		if res.Base != "" {
			fmt.Fprintf(w, "  Base:      %s\n", res.Base)
		}
		for _, a := range res.Artifacts {
			fmt.Fprintf(w, "  %-8s   %s  %s\n", a.Name, a.Path, formatBytes(a.Bytes))
		}
		if len(res.Skipped) > 0 {
			fmt.Fprintf(w, "  Skipped:   %s\n", strings.Join(res.Skipped, ", "))
		}
		if res.NotRun {
			fmt.Fprintf(w, "  Error:     %s\n", res.Error)
		} else if !res.OK() {
			fmt.Fprintf(w, "  Stage:     %s\n", res.Stage)
			fmt.Fprintf(w, "  Error:     %s\n", res.Error)
			fmt.Fprintf(w, "  Action:    %s\n", fferrors.GetSuggestedAction(fferrors.ErrorCode(res.Code)))
		}
	}

	fmt.Fprintf(w, "\nExported %d, failed %d", report.Exported(), report.Failed())
	if n := report.NotRun(); n > 0 {
		fmt.Fprintf(w, ", not run %d", n)
	}
	fmt.Fprintf(w, " in %s (run %s)\n", formatDurationMs(report.Duration.Milliseconds()), report.RunID)
	return nil
}

// openEventSinks connects every configured event destination. A sink that
// cannot be opened is skipped with a warning.
func openEventSinks(ctx context.Context, cfg *config.CLIConfig, log logging.Logger) events.Multi {
	var sinks events.Multi
	if cfg.Events.RedisEnabled() {
		pub, err := events.NewPublisherFromConfig(ctx, events.PublisherConfig{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
			Channel:  cfg.Events.Channel,
		}, log)
		if err != nil {
			log.Warn("Redis event publication disabled", logging.Err(err))
		} else {
			sinks = append(sinks, pub)
		}
	}
	if cfg.Events.KafkaEnabled() {
		pub, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Events.KafkaBrokers,
			Topic:   cfg.Events.KafkaTopic,
		}, log)
		if err != nil {
			log.Warn("Kafka event publication disabled", logging.Err(err))
		} else {
			sinks = append(sinks, pub)
		}
	}
	return sinks
}

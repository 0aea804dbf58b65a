package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// defaultListLimit is the page size for list when neither flag nor config sets one.
const defaultListLimit = 10

// TranscriptSummary is one row of the list output.
type TranscriptSummary struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Date      *time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Duration  float64    `json:"duration_minutes" yaml:"duration_minutes"`
	Sentences int        `json:"sentences" yaml:"sentences"`
}

func summarize(rec *transcript.Record) TranscriptSummary {
	s := TranscriptSummary{
		ID:        rec.ID,
		Title:     rec.Title,
		Duration:  rec.Duration,
		Sentences: len(rec.Sentences),
	}
	if t, ok := rec.MeetingTime(); ok {
		s.Date = &t
	}
	return s
}

// NewListCommand creates the list command.
func NewListCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}

	var (
		apiKey string
		limit  int
		skip   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transcripts without downloading them",
		Long: `List transcripts visible to the API key with their date, title, duration and
sentence count.

Examples:
  ffdl list
  ffdl list --limit 25 --skip 25
  ffdl list -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), deps, apiKey, limit, skip, output)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Fireflies API key (overrides FIREFLIES_API_KEY and the keyring)")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultListLimit, "Number of transcripts to list")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of transcripts to skip")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runList(ctx context.Context, deps *CommandDeps, apiKey string, limit, skip int, output string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := deps.config()
	if err != nil {
		return err
	}

	format, err := outputFormat(output, cfg)
	if err != nil {
		return err
	}

	if limit <= 0 || skip < 0 {
		return fmt.Errorf("%w: --limit must be positive and --skip not negative", fferrors.ErrValidation)
	}

	store, err := deps.Credentials()
	if err != nil {
		return fmt.Errorf("initializing credential store: %w", err)
	}
	key, _, err := store.Resolve(apiKey)
	if err != nil {
		return fmt.Errorf("%w: pass --api-key, set FIREFLIES_API_KEY, or run 'ffdl auth login'", err)
	}

	fetcher, err := deps.NewFetcher(cfg, key)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	records, err := fetcher.Transcripts(ctx, limit, skip)
	if err != nil {
		fmt.Fprintf(deps.stderr(), "Hint: %s\n", fferrors.GetSuggestedAction(fferrors.CodeOf(err)))
		return err
	}

	rows := make([]TranscriptSummary, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		rows = append(rows, summarize(rec))
	}

	return outputTranscriptList(deps.stdout(), format, rows)
}

func outputTranscriptList(w io.Writer, format config.OutputFormat, rows []TranscriptSummary) error {
	if handled, err := WriteStructured(w, format, rows); handled {
		return err
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No transcripts found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTITLE\tDURATION\tSENTENCES")
	for _, r := range rows {
		date := "-"
		if r.Date != nil {
			date = fmt.Sprintf("%s (%s)", r.Date.Format("2006-01-02 15:04"), humanize.Time(*r.Date))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.ID, date, r.Title, formatMeetingLength(r.Duration), r.Sentences)
	}
	return tw.Flush()
}

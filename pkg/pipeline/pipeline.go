// Package pipeline drives the export of fetched transcripts. Each transcript
// moves Normalized -> PathResolved -> media -> exporters -> Exported; a failed
// step stops that transcript only and the next one still runs.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/events"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/export"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/metrics"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/observability"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/runlog"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// Stage is the last state a transcript reached.
type Stage string

const (
	StageFetched      Stage = "fetched"
	StageNormalized   Stage = "normalized"
	StagePathResolved Stage = "path_resolved"
	StageMedia        Stage = "media"
	StageExporting    Stage = "exporting"
	StageExported     Stage = "exported"
)

// fetchStage labels errors from the page source.
const fetchStage = "fetch"

// Fetcher returns one page of transcripts.
type Fetcher interface {
	Transcripts(ctx context.Context, limit, skip int) ([]*transcript.Record, error)
}

// MediaFetcher copies a remote media file to path.
type MediaFetcher interface {
	Download(ctx context.Context, url, path string) (int64, error)
}

// Publisher announces transcript results.
type Publisher interface {
	PublishTranscriptExported(ctx context.Context, params events.TranscriptExportedParams) error
}

// Recorder persists transcript results.
type Recorder interface {
	Record(ctx context.Context, e runlog.Entry) error
}

// Options configures a Pipeline. Only Root is required.
type Options struct {
	// Root is the output root directory.
	Root string
	// Exporters run in order for every transcript; nil means export.All().
	Exporters []export.Exporter
	// Media downloads audio and video; nil skips media.
	Media MediaFetcher
	// DryRun resolves paths without creating directories or writing files.
	DryRun bool

	Publisher Publisher
	Recorder  Recorder
	Metrics   *metrics.ExportMetrics
	Tracer    *observability.Tracer
	Logger    logging.Logger
}

// Pipeline exports transcripts to the local filesystem.
type Pipeline struct {
	root      string
	exporters []export.Exporter
	media     MediaFetcher
	dryRun    bool
	publisher Publisher
	recorder  Recorder
	metrics   *metrics.ExportMetrics
	tracer    *observability.Tracer
	logger    logging.Logger
	now       func() time.Time
}

// New creates a pipeline from options.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		root:      opts.Root,
		exporters: opts.Exporters,
		media:     opts.Media,
		dryRun:    opts.DryRun,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if p.exporters == nil {
		p.exporters = export.All()
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	if p.tracer == nil {
		p.tracer = observability.NewTracer()
	}
	if p.logger == nil {
		p.logger = logging.NewNopLogger()
	}
	return p
}

// Metrics returns the metrics the pipeline records into.
func (p *Pipeline) Metrics() *metrics.ExportMetrics {
	return p.metrics
}

// Run exports one already-fetched page in order and returns its report.
func (p *Pipeline) Run(ctx context.Context, records []*transcript.Record) *Report {
	report := p.newReport()
	ctx = logging.ContextWithRunID(ctx, report.RunID)

	ctx, span := p.tracer.StartRunSpan(ctx, report.RunID, len(records))
	defer span.End()

	p.runPage(ctx, report, records)
	report.finish(p.now())
	return report
}

// PageRequest selects which pages Export fetches.
type PageRequest struct {
	// Limit is the page size.
	Limit int
	// Skip is the offset of the first page.
	Skip int
	// All keeps fetching pages until an empty or short page is returned.
	All bool
}

// Export fetches pages from f and exports each one. A fetch failure ends the
// run; the report then holds the transcripts processed so far and the
// returned error is the classified fetch error. When ctx ends mid-page the
// transcripts not yet started are reported as not run and the error carries
// the stage the run stopped at.
func (p *Pipeline) Export(ctx context.Context, f Fetcher, req PageRequest) (*Report, error) {
	if req.Limit <= 0 {
		req.Limit = 1
	}

	report := p.newReport()
	ctx = logging.ContextWithRunID(ctx, report.RunID)
	log := p.logger.WithContext(ctx)

	ctx, span := p.tracer.StartRunSpan(ctx, report.RunID, 0)
	defer span.End()

	skip := req.Skip
	for {
		if err := ctx.Err(); err != nil {
			report.finish(p.now())
			return report, classify(err, fetchStage, "")
		}

		log.Debug("Fetching transcripts", logging.F("limit", req.Limit), logging.F("skip", skip))
		records, err := f.Transcripts(ctx, req.Limit, skip)
		if err != nil {
			se := classify(err, fetchStage, "")
			log.Error("Fetching transcripts failed", logging.Err(err), logging.F("code", string(se.Code)))
			observability.NewSpanHelper(span).SetError(err, string(se.Code), isRetryable(se))
			report.finish(p.now())
			return report, se
		}

		stage, id := p.runPage(ctx, report, records)
		if err := ctx.Err(); err != nil {
			if stage == "" {
				stage = fetchStage
			}
			report.finish(p.now())
			return report, classify(err, stage, id)
		}

		if !req.All || len(records) < req.Limit {
			break
		}
		skip += len(records)
	}

	report.finish(p.now())
	return report, nil
}

func (p *Pipeline) newReport() *Report {
	return &Report{
		RunID:     uuid.New().String(),
		StartedAt: p.now(),
		DryRun:    p.dryRun,
	}
}

// runPage exports records in order. If ctx ends before the page is done the
// remaining records are added as not run, and the stage and transcript id
// where the run stopped are returned.
func (p *Pipeline) runPage(ctx context.Context, report *Report, records []*transcript.Record) (string, string) {
	var last *Result
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			stage, id := string(StageFetched), rec.ID
			if last != nil && !last.OK() {
				stage, id = string(last.Stage), last.TranscriptID
			}
			n := p.addNotRun(report, records[i:], err)
			p.logger.WithContext(ctx).Warn("Run cancelled", logging.F("remaining", n))
			return stage, id
		}
		res := p.ExportTranscript(ctx, rec)
		report.add(res)
		p.announce(ctx, report.RunID, res)
		last = &res
	}
	if ctx.Err() != nil && last != nil && !last.OK() {
		return string(last.Stage), last.TranscriptID
	}
	return "", ""
}

// addNotRun records transcripts that were fetched but never started.
func (p *Pipeline) addNotRun(report *Report, records []*transcript.Record, cause error) int {
	n := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		se := classify(cause, string(StageFetched), rec.ID)
		report.add(Result{
			TranscriptID: rec.ID,
			Title:        rec.Title,
			Artifacts:    []Artifact{},
			Stage:        StageFetched,
			Error:        "not run: " + cause.Error(),
			Code:         string(se.Code),
			Err:          se,
			NotRun:       true,
		})
		n++
	}
	return n
}

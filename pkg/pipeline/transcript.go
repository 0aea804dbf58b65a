package pipeline

import (
	"context"
	"time"

	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/events"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/export"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/media"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/metrics"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/observability"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/runlog"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// Artifact is one file written (or planned, in a dry run) for a transcript.
type Artifact struct {
	// Name is the exporter format or media kind.
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path" yaml:"path"`
	Bytes int64  `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// Result is the outcome of exporting one transcript.
type Result struct {
	TranscriptID string        `json:"transcript_id" yaml:"transcript_id"`
	Title        string        `json:"title" yaml:"title"`
	Base         string        `json:"base,omitempty" yaml:"base,omitempty"`
	Artifacts    []Artifact    `json:"artifacts" yaml:"artifacts"`
	Skipped      []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Stage        Stage         `json:"stage" yaml:"stage"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Code         string        `json:"code,omitempty" yaml:"code,omitempty"`
	Err          error         `json:"-" yaml:"-"`
	Duration     time.Duration `json:"duration" yaml:"duration"`

	// NotRun marks a fetched transcript the run stopped before starting.
	NotRun bool `json:"not_run,omitempty" yaml:"not_run,omitempty"`
}

// OK reports whether the transcript was fully exported.
func (r Result) OK() bool {
	return r.Err == nil
}

// Paths returns the artifact paths in write order.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		paths[i] = a.Path
	}
	return paths
}

// ErrorCode returns the classified error code, or "" on success.
func (r Result) ErrorCode() string {
	return r.Code
}

// ExportTranscript runs every step for one record. It never panics on
// missing optional fields and always returns a Result.
func (p *Pipeline) ExportTranscript(ctx context.Context, rec *transcript.Record) Result {
	start := p.now()
	ctx = logging.ContextWithTranscriptID(ctx, rec.ID)
	ctx, span := p.tracer.StartTranscriptSpan(ctx, rec.ID, rec.Title)
	defer span.End()

	log := p.logger.WithContext(ctx)
	res := Result{
		TranscriptID: rec.ID,
		Title:        rec.Title,
		Artifacts:    []Artifact{},
		Stage:        StageFetched,
	}

	done := func() Result {
		res.Duration = p.now().Sub(start)
		helper := observability.NewSpanHelper(span)
		helper.SetStage(string(res.Stage))
		helper.SetArtifacts(len(res.Artifacts))

		status := metrics.StatusExported
		if res.Err != nil {
			status = metrics.StatusFailed
			se := classify(res.Err, string(res.Stage), rec.ID)
			helper.SetError(res.Err, string(se.Code), isRetryable(se))
			log.Error("Transcript export failed",
				logging.Err(res.Err),
				logging.F("stage", string(res.Stage)),
				logging.F("code", string(se.Code)))
		} else {
			helper.SetSuccess()
			log.Info("Transcript exported",
				logging.F("title", rec.Title),
				logging.F("artifacts", len(res.Artifacts)),
				logging.F("duration", res.Duration))
		}
		if !p.dryRun {
			p.metrics.RecordTranscript(status, res.Duration)
		}
		return res
	}

	fail := func(stage Stage, err error) Result {
		se := classify(err, string(stage), rec.ID)
		res.Stage = stage
		res.Err = se
		res.Error = err.Error()
		res.Code = string(se.Code)
		return done()
	}

	doc := export.NewDocument(rec)
	res.Stage = StageNormalized

	var target export.Target
	if p.dryRun {
		target = export.Plan(p.root, rec)
	} else {
		var err error
		if target, err = export.Resolve(p.root, rec); err != nil {
			return fail(StagePathResolved, err)
		}
	}
	res.Base = target.Base
	res.Stage = StagePathResolved
	log.Debug("Resolved output path", logging.F("base", target.Base))

	if p.media != nil {
		for _, kind := range media.Kinds {
			url := mediaURL(rec, kind)
			if url == "" {
				res.Skipped = append(res.Skipped, kind.Name)
				continue
			}
			if err := ctx.Err(); err != nil {
				return fail(StageMedia, err)
			}

			path := target.Path(kind.Ext)
			if p.dryRun {
				res.Artifacts = append(res.Artifacts, Artifact{Name: kind.Name, Path: path})
				continue
			}

			n, err := p.download(ctx, kind, url, path)
			if err != nil {
				return fail(StageMedia, err)
			}
			res.Artifacts = append(res.Artifacts, Artifact{Name: kind.Name, Path: path, Bytes: n})
		}
	}

	res.Stage = StageExporting
	for _, e := range p.exporters {
		if err := ctx.Err(); err != nil {
			return fail(StageExporting, err)
		}

		path := target.Path(e.Ext())
		if p.dryRun {
			if e.Name() == export.FormatCSV && len(doc.Sentences) == 0 {
				res.Skipped = append(res.Skipped, e.Name())
				continue
			}
			res.Artifacts = append(res.Artifacts, Artifact{Name: e.Name(), Path: path})
			continue
		}

		if err := p.runExporter(ctx, e, doc, target); err != nil {
			if fferrors.IsNoSentences(err) {
				log.Debug("Skipping artifact without sentences", logging.F("format", e.Name()))
				res.Skipped = append(res.Skipped, e.Name())
				continue
			}
			p.metrics.RecordArtifactError(e.Name())
			return fail(StageExporting, err)
		}
		p.metrics.RecordArtifact(e.Name())
		res.Artifacts = append(res.Artifacts, Artifact{Name: e.Name(), Path: path})
	}

	res.Stage = StageExported
	return done()
}

func (p *Pipeline) download(ctx context.Context, kind media.Kind, url, path string) (int64, error) {
	ctx, span := p.tracer.StartMediaSpan(ctx, kind.Name)
	defer span.End()

	n, err := p.media.Download(ctx, url, path)
	if err != nil {
		p.metrics.RecordArtifactError(kind.Name)
		return n, err
	}
	observability.NewSpanHelper(span).SetBytes(n)
	p.metrics.RecordMediaBytes(kind.Name, n)
	p.metrics.RecordArtifact(kind.Name)
	return n, nil
}

func (p *Pipeline) runExporter(ctx context.Context, e export.Exporter, doc *export.Document, target export.Target) error {
	_, span := p.tracer.StartExportSpan(ctx, e.Name())
	defer span.End()
	return e.Export(doc, target)
}

// announce publishes and records a result. Failures only warn.
func (p *Pipeline) announce(ctx context.Context, runID string, res Result) {
	if p.dryRun {
		return
	}
	log := p.logger.WithContext(ctx)

	if p.publisher != nil {
		err := p.publisher.PublishTranscriptExported(ctx, events.TranscriptExportedParams{
			RunID:        runID,
			TranscriptID: res.TranscriptID,
			Title:        res.Title,
			BasePath:     res.Base,
			Artifacts:    res.Paths(),
			Skipped:      res.Skipped,
			Err:          res.Err,
			ErrorCode:    res.ErrorCode(),
			Duration:     res.Duration,
		})
		if err != nil {
			log.Warn("Could not publish export event", logging.Err(err), logging.F("transcript", res.TranscriptID))
		}
	}

	if p.recorder != nil {
		entry := runlog.Entry{
			RunID:        runID,
			TranscriptID: res.TranscriptID,
			Title:        res.Title,
			BasePath:     res.Base,
			Artifacts:    res.Paths(),
			Skipped:      res.Skipped,
			Stage:        string(res.Stage),
			Success:      res.OK(),
			ErrorCode:    res.ErrorCode(),
			Duration:     res.Duration,
		}
		if res.Err != nil {
			entry.ErrorMessage = res.Err.Error()
		}
		if err := p.recorder.Record(ctx, entry); err != nil {
			log.Warn("Could not record export result", logging.Err(err), logging.F("transcript", res.TranscriptID))
		}
	}
}

func mediaURL(rec *transcript.Record, kind media.Kind) string {
	switch kind {
	case media.Audio:
		return rec.AudioURL
	case media.Video:
		return rec.VideoURL
	}
	return ""
}

func classify(err error, stage, transcriptID string) *fferrors.StageError {
	se := fferrors.ClassifyError(err, stage)
	if se.TranscriptID == "" && transcriptID != "" {
		se.WithTranscript(transcriptID)
	}
	return se
}

func isRetryable(se *fferrors.StageError) bool {
	return fferrors.IsRetryable(se.Code)
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/events"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/export"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/logging"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/runlog"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// fakeMedia writes a fixed payload, or fails for URLs listed in fail.
type fakeMedia struct {
	calls []string
	fail  map[string]error
	after func()
}

func (f *fakeMedia) Download(ctx context.Context, url, path string) (int64, error) {
	f.calls = append(f.calls, url)
	if f.after != nil {
		defer f.after()
	}
	if err := f.fail[url]; err != nil {
		return 0, err
	}
	payload := []byte("bytes:" + url)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

// cancellingMedia cancels the run while downloading url.
type cancellingMedia struct {
	url    string
	cancel context.CancelFunc
}

func (m *cancellingMedia) Download(ctx context.Context, url, path string) (int64, error) {
	if url == m.url {
		m.cancel()
		return 0, fmt.Errorf("downloading media: %w", ctx.Err())
	}
	return 4, os.WriteFile(path, []byte("data"), 0o644)
}

type fakeFetcher struct {
	pages map[int][]*transcript.Record
	err   error
	skips []int
}

func (f *fakeFetcher) Transcripts(ctx context.Context, limit, skip int) ([]*transcript.Record, error) {
	f.skips = append(f.skips, skip)
	if f.err != nil && len(f.skips) > 1 {
		return nil, f.err
	}
	return f.pages[skip], nil
}

type failingExporter struct{ err error }

func (failingExporter) Name() string { return "broken" }
func (failingExporter) Ext() string  { return ".broken" }
func (e failingExporter) Export(*export.Document, export.Target) error {
	return e.err
}

type fakePublisher struct {
	got []events.TranscriptExportedParams
	err error
}

func (f *fakePublisher) PublishTranscriptExported(ctx context.Context, p events.TranscriptExportedParams) error {
	f.got = append(f.got, p)
	return f.err
}

type fakeRecorder struct {
	got []runlog.Entry
	err error
}

func (f *fakeRecorder) Record(ctx context.Context, e runlog.Entry) error {
	f.got = append(f.got, e)
	return f.err
}

func ms(v float64) *float64 { return &v }
func str(s string) *string  { return &s }

func record(id, title string) *transcript.Record {
	return &transcript.Record{
		ID:       id,
		Title:    title,
		Date:     ms(1700000000000),
		AudioURL: "https://cdn.example.com/" + id + ".mp3",
		VideoURL: "https://cdn.example.com/" + id + ".mp4",
		Sentences: []transcript.RawSentence{
			{Index: 0, SpeakerName: "Ana", Text: "Hello.", RawText: "hello", StartTime: 0, EndTime: 1.5},
			{Index: 1, SpeakerID: 2, Text: "Bye.", RawText: "bye", StartTime: 61, EndTime: 62},
		},
		Summary: &transcript.Summary{Overview: str("Sync.")},
	}
}

var allExts = []string{".mp3", ".mp4", ".json", ".summary.json", ".csv", ".pdf", ".docx", ".srt"}

func TestRun_ExportsFullArtifactSet(t *testing.T) {
	root := t.TempDir()
	mf := &fakeMedia{}
	p := New(Options{Root: root, Media: mf})

	report := p.Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	require.NoError(t, res.Err)
	assert.Equal(t, StageExported, res.Stage)
	assert.Equal(t, filepath.Join(root, "2023-11-14", "22:13:20.000", "Standup"), res.Base)
	assert.Empty(t, res.Skipped)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, res.Artifacts, len(allExts))
	for i, ext := range allExts {
		assert.Equal(t, res.Base+ext, res.Artifacts[i].Path)
		_, err := os.Stat(res.Base + ext)
		assert.NoError(t, err, ext)
	}
	assert.Equal(t, 1, report.Exported())
	assert.False(t, report.HasFailures())
}

func TestRun_NoDateUsesDownloads(t *testing.T) {
	root := t.TempDir()
	rec := record("t1", "Standup")
	rec.Date = nil

	report := New(Options{Root: root}).Run(context.Background(), []*transcript.Record{rec})

	require.True(t, report.Results[0].OK())
	assert.Equal(t, filepath.Join(root, "downloads", "Standup"), report.Results[0].Base)
}

func TestRun_NilMediaSkipsDownloads(t *testing.T) {
	root := t.TempDir()
	report := New(Options{Root: root}).Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	res := report.Results[0]
	require.True(t, res.OK())
	assert.Len(t, res.Artifacts, 6)
	_, err := os.Stat(res.Base + ".mp3")
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingMediaURLsAreSkipped(t *testing.T) {
	rec := record("t1", "Standup")
	rec.AudioURL = ""
	rec.VideoURL = ""
	mf := &fakeMedia{}

	report := New(Options{Root: t.TempDir(), Media: mf}).Run(context.Background(), []*transcript.Record{rec})

	res := report.Results[0]
	require.True(t, res.OK())
	assert.Empty(t, mf.calls)
	assert.Equal(t, []string{"audio", "video"}, res.Skipped)
}

func TestRun_NoSentencesSkipsCSV(t *testing.T) {
	rec := record("t1", "Empty")
	rec.Sentences = nil

	report := New(Options{Root: t.TempDir()}).Run(context.Background(), []*transcript.Record{rec})

	res := report.Results[0]
	require.True(t, res.OK(), "missing sentences are not a failure")
	assert.Equal(t, []string{"csv"}, res.Skipped)
	assert.Len(t, res.Artifacts, 5)
	_, err := os.Stat(res.Base + ".csv")
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MediaFailureStopsTranscriptOnly(t *testing.T) {
	root := t.TempDir()
	first := record("t1", "First")
	second := record("t2", "Second")
	mf := &fakeMedia{fail: map[string]error{first.AudioURL: errors.New("connection refused")}}
	p := New(Options{Root: root, Media: mf})

	report := p.Run(context.Background(), []*transcript.Record{first, second})

	require.Len(t, report.Results, 2)
	failed := report.Results[0]
	assert.False(t, failed.OK())
	assert.Equal(t, StageMedia, failed.Stage)
	assert.Equal(t, string(fferrors.ErrUpstreamUnavailable), failed.Code)
	assert.Empty(t, failed.Artifacts)
	_, err := os.Stat(failed.Base + ".json")
	assert.True(t, os.IsNotExist(err), "exporters must not run after a media failure")

	assert.True(t, report.Results[1].OK())
	assert.Equal(t, 1, report.Failed())
	assert.Len(t, report.Failures(), 1)

	m := p.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptsTotal.WithLabelValues("exported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactErrorsTotal.WithLabelValues("audio")))
}

func TestRun_ExporterFailureStopsRemainingExporters(t *testing.T) {
	root := t.TempDir()
	exporters := []export.Exporter{
		export.JSONExporter{},
		failingExporter{err: errors.New("no space left on device")},
		export.SRTExporter{},
	}
	p := New(Options{Root: root, Exporters: exporters})

	report := p.Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	res := report.Results[0]
	require.False(t, res.OK())
	assert.Equal(t, StageExporting, res.Stage)
	assert.Equal(t, string(fferrors.ErrIO), res.Code)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, "json", res.Artifacts[0].Name)

	_, err := os.Stat(res.Base + ".srt")
	assert.True(t, os.IsNotExist(err))

	var se *fferrors.StageError
	require.True(t, errors.As(res.Err, &se))
	assert.Equal(t, "t1", se.TranscriptID)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics().ArtifactErrorsTotal.WithLabelValues("broken")))
}

func TestRun_PathFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	report := New(Options{Root: root}).Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	res := report.Results[0]
	assert.False(t, res.OK())
	assert.Equal(t, StagePathResolved, res.Stage)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	mf := &fakeMedia{}
	p := New(Options{Root: root, Media: mf, DryRun: true})

	report := p.Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	res := report.Results[0]
	require.True(t, res.OK())
	assert.Len(t, res.Artifacts, len(allExts))
	assert.Empty(t, mf.calls)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_CancelledBetweenTranscripts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := record("t1", "First")
	first.VideoURL = ""
	mf := &fakeMedia{after: cancel}

	report := New(Options{Root: t.TempDir(), Media: mf}).Run(ctx, []*transcript.Record{first, record("t2", "Second")})

	require.Len(t, report.Results, 2)
	res := report.Results[0]
	assert.False(t, res.OK())
	assert.False(t, res.NotRun)
	assert.Equal(t, string(fferrors.ErrContextCancelled), res.Code)

	second := report.Results[1]
	assert.True(t, second.NotRun, "second transcript must not start")
	assert.Equal(t, "t2", second.TranscriptID)
	assert.Equal(t, StageFetched, second.Stage)
	assert.Equal(t, []string{"https://cdn.example.com/t1.mp3"}, mf.calls)
}

func TestRun_PublishesAndRecords(t *testing.T) {
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	p := New(Options{Root: t.TempDir(), Publisher: pub, Recorder: rec})

	report := p.Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	require.Len(t, pub.got, 1)
	assert.Equal(t, report.RunID, pub.got[0].RunID)
	assert.Equal(t, "t1", pub.got[0].TranscriptID)
	assert.Len(t, pub.got[0].Artifacts, 6)
	assert.NoError(t, pub.got[0].Err)

	require.Len(t, rec.got, 1)
	assert.True(t, rec.got[0].Success)
	assert.Equal(t, "exported", rec.got[0].Stage)
}

func TestRun_AnnounceFailuresOnlyWarn(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logging.NewLogger(&logging.Config{Level: logging.LevelWarn, JSONFormat: true, Output: buf})
	p := New(Options{
		Root:      t.TempDir(),
		Publisher: &fakePublisher{err: errors.New("redis down")},
		Recorder:  &fakeRecorder{err: errors.New("db down")},
		Logger:    log,
	})

	report := p.Run(context.Background(), []*transcript.Record{record("t1", "Standup")})

	assert.True(t, report.Results[0].OK())
	out := buf.String()
	assert.Contains(t, out, "redis down")
	assert.Contains(t, out, "db down")
	assert.Contains(t, out, report.RunID)
}

func TestRun_DuplicateTitlesShareDirectoryButNotResults(t *testing.T) {
	root := t.TempDir()
	a := record("t1", "Standup")
	b := record("t2", "Standup")
	b.Date = ms(1700000001000)

	report := New(Options{Root: root}).Run(context.Background(), []*transcript.Record{a, b})

	require.Len(t, report.Results, 2)
	assert.NotEqual(t, report.Results[0].Base, report.Results[1].Base)
}

func TestExport_WalksPages(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]*transcript.Record{
		0: {record("t1", "One"), record("t2", "Two")},
		2: {record("t3", "Three")},
	}}
	p := New(Options{Root: t.TempDir()})

	report, err := p.Export(context.Background(), f, PageRequest{Limit: 2, All: true})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, f.skips)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "t3", report.Results[2].TranscriptID)
}

func TestExport_SinglePage(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]*transcript.Record{
		5: {record("t6", "Six")},
	}}
	p := New(Options{Root: t.TempDir()})

	report, err := p.Export(context.Background(), f, PageRequest{Limit: 1, Skip: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{5}, f.skips)
	assert.Len(t, report.Results, 1)
}

func TestExport_FetchFailureKeepsEarlierResults(t *testing.T) {
	f := &fakeFetcher{
		pages: map[int][]*transcript.Record{0: {record("t1", "One")}},
		err:   errors.New("graphql errors: bad skip"),
	}
	p := New(Options{Root: t.TempDir()})

	report, err := p.Export(context.Background(), f, PageRequest{Limit: 1, All: true})
	require.Error(t, err)
	assert.Equal(t, fferrors.ErrGraphQL, fferrors.CodeOf(err))
	assert.Len(t, report.Results, 1)
	assert.True(t, strings.Contains(err.Error(), "fetch"))
}

func TestExport_EmptyPage(t *testing.T) {
	f := &fakeFetcher{pages: map[int][]*transcript.Record{}}
	report, err := New(Options{Root: t.TempDir()}).Export(context.Background(), f, PageRequest{Limit: 1, All: true})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.NotNil(t, report.Results)
}

func TestExport_CancelledMidPageListsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	second := record("t2", "Second")
	f := &fakeFetcher{pages: map[int][]*transcript.Record{
		0: {record("t1", "First"), second, record("t3", "Third")},
	}}
	mf := &cancellingMedia{url: second.AudioURL, cancel: cancel}

	report, err := New(Options{Root: t.TempDir(), Media: mf}).Export(ctx, f, PageRequest{Limit: 3})
	require.Error(t, err)

	var se *fferrors.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, string(StageMedia), se.Stage)
	assert.Equal(t, "t2", se.TranscriptID)
	assert.Equal(t, fferrors.ErrContextCancelled, se.Code)
	assert.NotContains(t, err.Error(), "fetch")

	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].OK())
	assert.Equal(t, StageMedia, report.Results[1].Stage)
	assert.False(t, report.Results[1].NotRun)
	assert.True(t, report.Results[2].NotRun)
	assert.Equal(t, "t3", report.Results[2].TranscriptID)

	assert.Equal(t, 1, report.Exported())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.NotRun())
	assert.True(t, report.HasFailures())
}

func TestExport_CancelledBetweenPagesIsFetchStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{pages: map[int][]*transcript.Record{0: {record("t1", "First")}}}
	p := New(Options{Root: t.TempDir(), Publisher: &cancellingPublisher{cancel: cancel}})

	report, err := p.Export(ctx, f, PageRequest{Limit: 1, All: true})
	require.Error(t, err)

	var se *fferrors.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "fetch", se.Stage)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].OK())
	assert.Zero(t, report.NotRun())
}

// cancellingPublisher cancels the run once the first result is announced.
type cancellingPublisher struct{ cancel context.CancelFunc }

func (c *cancellingPublisher) PublishTranscriptExported(context.Context, events.TranscriptExportedParams) error {
	c.cancel()
	return nil
}

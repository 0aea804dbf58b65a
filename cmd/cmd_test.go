package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"time"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/credentials"
	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/pipeline"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// fakeStore is an in-memory CredentialStore.
type fakeStore struct {
	key      string
	saved    string
	endpoint string
	deleted  bool
	saveErr  error
}

func (f *fakeStore) Resolve(flagValue string) (string, credentials.Source, error) {
	if flagValue != "" {
		return flagValue, credentials.SourceFlag, nil
	}
	if env := os.Getenv(credentials.EnvAPIKey); env != "" {
		return env, credentials.SourceEnv, nil
	}
	if f.key != "" {
		return f.key, credentials.SourceKeyring, nil
	}
	return "", credentials.SourceNone, fferrors.ErrNoCredentials
}

func (f *fakeStore) Save(apiKey, endpoint string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved, f.endpoint, f.key = apiKey, endpoint, apiKey
	return nil
}

func (f *fakeStore) Load() (string, error) {
	if f.key == "" {
		return "", fferrors.ErrNoCredentials
	}
	return f.key, nil
}

func (f *fakeStore) LoadMetadata() (*credentials.Metadata, error) {
	if f.key == "" {
		return nil, fferrors.ErrNoCredentials
	}
	return &credentials.Metadata{KeyID: credentials.GenerateAPIKeyID(f.key), LastUpdated: time.Unix(0, 0).UTC()}, nil
}

func (f *fakeStore) Delete() error {
	f.key = ""
	f.deleted = true
	return nil
}

func (f *fakeStore) Exists() bool { return f.key != "" }

// fakeFetcher serves fixed pages and records the requests it saw.
type fakeFetcher struct {
	pages  [][]*transcript.Record
	err    error
	calls  [][2]int
	apiKey string
}

func (f *fakeFetcher) Transcripts(ctx context.Context, limit, skip int) ([]*transcript.Record, error) {
	f.calls = append(f.calls, [2]int{limit, skip})
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.calls) - 1
	if i >= len(f.pages) {
		return nil, nil
	}
	return f.pages[i], nil
}

// fakeMedia writes a fixed payload, optionally after a delay that honors ctx.
type fakeMedia struct {
	urls  []string
	delay time.Duration
}

func (m *fakeMedia) Download(ctx context.Context, url, path string) (int64, error) {
	m.urls = append(m.urls, url)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 4, os.WriteFile(path, []byte("data"), 0644)
}

func ms(v float64) *float64 { return &v }

func sampleRecord(id, title string) *transcript.Record {
	return &transcript.Record{
		ID:       id,
		Title:    title,
		Date:     ms(1700000000000),
		Duration: 30.5,
		AudioURL: "https://cdn.example.com/" + id + ".mp3",
		Sentences: []transcript.RawSentence{
			{Index: 0, SpeakerName: "Ana", Text: "Hello.", RawText: "hello", StartTime: 0, EndTime: 1.5},
		},
	}
}

func testConfig(outputDir string) *config.CLIConfig {
	cfg := config.DefaultConfig()
	cfg.OutputDir = outputDir
	cfg.Timeout = time.Minute
	return cfg
}

type testEnv struct {
	deps    *CommandDeps
	store   *fakeStore
	fetcher *fakeFetcher
	media   *fakeMedia
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

func newTestEnv(cfg *config.CLIConfig) *testEnv {
	env := &testEnv{
		store:   &fakeStore{key: "stored-key-123456"},
		fetcher: &fakeFetcher{},
		media:   &fakeMedia{},
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
	env.deps = &CommandDeps{
		Config: cfg,
		LoadConfig: func() (*config.CLIConfig, error) {
			return cfg, nil
		},
		SaveConfig: func(*config.CLIConfig) error { return nil },
		NewFetcher: func(c *config.CLIConfig, apiKey string) (pipeline.Fetcher, error) {
			env.fetcher.apiKey = apiKey
			return env.fetcher, nil
		},
		NewMedia: func(*config.CLIConfig) pipeline.MediaFetcher { return env.media },
		Credentials: func() (CredentialStore, error) {
			return env.store, nil
		},
		ReadSecret: func(string) (string, error) {
			return "", errors.New("no terminal in tests")
		},
		Out: env.out,
		Err: env.errOut,
	}
	return env
}

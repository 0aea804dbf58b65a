package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	message []byte
	err     error
	closed  bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(EventTypeTranscriptExported)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "transcript.exported", event.EventType)
	assert.Equal(t, "ffdl", event.Source)
	assert.False(t, event.Timestamp.IsZero())
}

func TestNewTranscriptExportedEvent(t *testing.T) {
	event := NewTranscriptExportedEvent(TranscriptExportedParams{
		RunID:        "run-1",
		TranscriptID: "t1",
		Title:        "Standup",
		BasePath:     "/out/downloads/Standup",
		Duration:     1500 * time.Millisecond,
	})

	assert.True(t, event.Success)
	assert.Nil(t, event.Error)
	assert.Equal(t, []string{}, event.Artifacts)
	assert.Equal(t, int64(1500), event.DurationMs)

	failed := NewTranscriptExportedEvent(TranscriptExportedParams{
		TranscriptID: "t2",
		Err:          errors.New("disk full"),
		ErrorCode:    "io_error",
	})
	assert.False(t, failed.Success)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "disk full", *failed.Error)
	require.NotNil(t, failed.ErrorCode)
	assert.Equal(t, "io_error", *failed.ErrorCode)
}

func TestPublisher_PublishTranscriptExported(t *testing.T) {
	fake := &fakeRedis{}
	p := newPublisher(fake, "", nil)

	err := p.PublishTranscriptExported(context.Background(), TranscriptExportedParams{
		RunID:        "run-1",
		TranscriptID: "t1",
		Artifacts:    []string{"/out/a.json"},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultChannel, fake.channel)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.message, &decoded))
	assert.Equal(t, "t1", decoded["transcript_id"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, true, decoded["success"])
	assert.NotContains(t, decoded, "error")
}

func TestPublisher_PublishError(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	p := newPublisher(fake, "custom.channel", nil)

	err := p.PublishTranscriptExported(context.Background(), TranscriptExportedParams{TranscriptID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "custom.channel", p.Channel())
}

func TestPublisher_Close(t *testing.T) {
	fake := &fakeRedis{}
	p := newPublisher(fake, "", nil)

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}

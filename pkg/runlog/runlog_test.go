package runlog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []interface{}
}

type fakeDB struct {
	calls   []execCall
	execErr error
	pingErr error
	closed  bool
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.execErr != nil {
		return nil, f.execErr
	}
	return nil, nil
}

func (f *fakeDB) PingContext(ctx context.Context) error { return f.pingErr }

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func TestStore_Init(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	require.NoError(t, s.init(context.Background()))
	require.Len(t, db.calls, 1)
	assert.True(t, strings.HasPrefix(db.calls[0].query, "CREATE TABLE IF NOT EXISTS ffdl_export_runs"))
}

func TestStore_InitPingFailure(t *testing.T) {
	db := &fakeDB{pingErr: errors.New("connection refused")}
	s := &Store{db: db}

	err := s.init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to database")
	assert.Empty(t, db.calls)
}

func TestStore_Record(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	err := s.Record(context.Background(), Entry{
		RunID:        "run-1",
		TranscriptID: "t1",
		Title:        "Standup",
		BasePath:     "/out/downloads/Standup",
		Artifacts:    []string{"/out/downloads/Standup.json"},
		Stage:        "exported",
		Success:      true,
		Duration:     2 * time.Second,
		Hostname:     "host-a",
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)

	args := db.calls[0].args
	require.Len(t, args, 12)
	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, "t1", args[1])
	assert.Equal(t, pq.Array([]string{"/out/downloads/Standup.json"}), args[4])
	assert.Equal(t, pq.Array([]string{}), args[5])
	assert.Equal(t, true, args[7])
	assert.Nil(t, args[8])
	assert.Nil(t, args[9])
	assert.Equal(t, int64(2000), args[10])
	assert.Equal(t, "host-a", args[11])
}

func TestStore_RecordTruncatesError(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}

	long := strings.Repeat("x", 800)
	require.NoError(t, s.Record(context.Background(), Entry{
		TranscriptID: "t1",
		ErrorCode:    "io_error",
		ErrorMessage: long,
		Hostname:     "h",
	}))

	args := db.calls[0].args
	assert.Equal(t, "io_error", args[8])
	assert.Len(t, args[9], maxErrorLen)
}

func TestStore_RecordError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("relation does not exist")}
	s := &Store{db: db}

	err := s.Record(context.Background(), Entry{TranscriptID: "t1", Hostname: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording export result")
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestStore_Close(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	require.NoError(t, s.Close())
	assert.True(t, db.closed)
}

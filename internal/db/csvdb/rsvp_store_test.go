// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package csvdb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quixsi/rsvp/internal/db"
	"github.com/quixsi/rsvp/internal/model"
	"github.com/quixsi/rsvp/internal/rsvpcsv"
)

func newTestStore(t *testing.T, opts ...Option) *RSVPStore {
	t.Helper()
	store, err := NewRSVPStore(filepath.Join(t.TempDir(), "rsvps.csv"), opts...)
	require.NoError(t, err)
	return store
}

func TestNewRSVPStore_EmptyFilename(t *testing.T) {
	_, err := NewRSVPStore("")
	require.Error(t, err)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Initialize(ctx))

	data, err := os.ReadFile(store.Filename())
	require.NoError(t, err)
	assert.Equal(t, "timestamp,name,guests,message\n", string(data))

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, rsvps)
}

func TestInitialize_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Initialize(ctx))
	_, err := store.AppendRSVP(ctx, "Jane Doe", 2, "Congrats!")
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)
	assert.Equal(t, "Jane Doe", rsvps[0].Name)
}

func TestInitialize_KeepsForeignContent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Filename(), []byte("something else\n"), 0644))

	require.NoError(t, store.Initialize(ctx))

	data, err := os.ReadFile(store.Filename())
	require.NoError(t, err)
	assert.Equal(t, "something else\n", string(data))
}

func TestInitialize_CreatesDirectory(t *testing.T) {
	store, err := NewRSVPStore(filepath.Join(t.TempDir(), "nested", "dir", "rsvps.csv"))
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	assert.FileExists(t, store.Filename())
}

func TestListRSVPs_MissingFile(t *testing.T) {
	store := newTestStore(t)

	rsvps, err := store.ListRSVPs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rsvps)
	assert.NoFileExists(t, store.Filename())
}

func TestListRSVPs_EmptyFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Filename(), nil, 0644))

	rsvps, err := store.ListRSVPs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rsvps)
}

func TestListRSVPs_Malformed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Filename(), []byte("timestamp,name,guests,message\nnope,Jane,x,\n"), 0644))

	_, err := store.ListRSVPs(context.Background())
	require.ErrorIs(t, err, rsvpcsv.ErrMalformed)
}

func TestAppendRSVP(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Initialize(ctx))

	before := time.Now().Truncate(time.Second)
	stored, err := store.AppendRSVP(ctx, "Jane Doe", 2, "Congrats!")
	require.NoError(t, err)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)

	last := rsvps[len(rsvps)-1]
	assert.Equal(t, "Jane Doe", last.Name)
	assert.Equal(t, 2, last.Guests)
	assert.Equal(t, "Congrats!", last.Message)
	assert.False(t, last.Timestamp.Before(before), "timestamp %s older than %s", last.Timestamp, before)
	assert.True(t, stored.Timestamp.Equal(last.Timestamp))
}

func TestAppendRSVP_WithoutInitialize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AppendRSVP(ctx, "Jane Doe", 1, "")
	require.NoError(t, err)

	data, err := os.ReadFile(store.Filename())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, rsvpcsv.HeaderLine()))

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)
}

func TestAppendRSVP_Scenario(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 10, 1, 9, 30, 0, 0, time.Local)
	store := newTestStore(t, WithClock(func() time.Time {
		clock = clock.Add(1500 * time.Millisecond)
		return clock
	}))
	require.NoError(t, store.Initialize(ctx))

	_, err := store.AppendRSVP(ctx, "Jane Doe", 2, "Congrats!")
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "John Smith", 0, "")
	require.NoError(t, err)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 2)

	assert.Equal(t, "Jane Doe", rsvps[0].Name)
	assert.Equal(t, 2, rsvps[0].Guests)
	assert.Equal(t, "Congrats!", rsvps[0].Message)
	assert.Equal(t, "John Smith", rsvps[1].Name)
	assert.Equal(t, 0, rsvps[1].Guests)
	assert.Equal(t, "", rsvps[1].Message)
	assert.False(t, rsvps[1].Timestamp.Before(rsvps[0].Timestamp))
	assert.Equal(t, "2025-10-01 09:30:01", rsvps[0].FormattedTimestamp())
	assert.Equal(t, "2025-10-01 09:30:03", rsvps[1].FormattedTimestamp())
}

func TestAppendRSVP_Order(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, n := range names {
		_, err := store.AppendRSVP(ctx, n, i, "msg, with comma")
		require.NoError(t, err)
	}

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, len(names))
	for i, r := range rsvps {
		assert.Equal(t, names[i], r.Name)
		assert.Equal(t, i, r.Guests)
		assert.Equal(t, "msg, with comma", r.Message)
	}
}

func TestAppendRSVP_Invalid(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tt := []struct {
		name   string
		rName  string
		guests int
	}{
		{name: "empty name", rName: "", guests: 1},
		{name: "blank name", rName: "   ", guests: 1},
		{name: "negative guests", rName: "Jane", guests: -1},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.AppendRSVP(ctx, tc.rName, tc.guests, "")
			require.ErrorIs(t, err, db.ErrInvalidRSVP)
		})
	}
	assert.NoFileExists(t, store.Filename())
}

func TestAppendRSVP_Unwritable(t *testing.T) {
	dir := t.TempDir()
	// a directory in place of the file cannot be appended to
	path := filepath.Join(dir, "rsvps.csv")
	require.NoError(t, os.Mkdir(path, 0755))

	store, err := NewRSVPStore(path)
	require.NoError(t, err)

	_, err = store.AppendRSVP(context.Background(), "Jane", 1, "")
	require.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.AppendRSVP(ctx, "Jane Doe", 2, "Congrats!")
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "Smith, John", 0, "line one\nline two")
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "Win User", 1, "line one\r\nline two\rend")
	require.NoError(t, err)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)

	exported, err := rsvpcsv.Bytes(rsvps)
	require.NoError(t, err)

	onDisk, err := os.ReadFile(store.Filename())
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), string(exported))

	parsed, err := rsvpcsv.Parse(bytes.NewReader(exported))
	require.NoError(t, err)
	require.Len(t, parsed, len(rsvps))
	for i := range rsvps {
		assert.Equal(t, normalized(rsvps[i]), normalized(parsed[i]))
	}
}

func TestAppendRSVP_CRLFMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rsvp, err := store.AppendRSVP(ctx, "Jane", 1, "a\r\nb")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", rsvp.Message)

	require.NoError(t, store.ImportRSVP(ctx, &model.RSVP{Timestamp: rsvp.Timestamp, Name: "Joe", Guests: 2, Message: "c\r\nd"}))

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 2)
	assert.Equal(t, normalized(rsvp), normalized(rsvps[0]))
	assert.Equal(t, "c\nd", rsvps[1].Message)
}

func TestAppendRSVP_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Initialize(ctx))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AppendRSVP(ctx, "guest", 1, "a message long enough to matter, with a comma")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Len(t, rsvps, n)
	assert.Equal(t, n, model.TotalGuests(rsvps))
}

func normalized(r *model.RSVP) model.RSVP {
	c := *r
	c.Timestamp = c.Timestamp.Round(0)
	return c
}

// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package jsondb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quixsi/rsvp/internal/db"
)

func TestRSVPStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rsvps.json")

	store, err := NewRSVPStore(path)
	require.NoError(t, err)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Empty(t, rsvps)

	require.NoError(t, store.Initialize(ctx))
	assert.FileExists(t, path)

	before := time.Now().Truncate(time.Second)
	_, err = store.AppendRSVP(ctx, "Jane Doe", 2, "Congrats!")
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "John Smith", 0, "")
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))

	// a second store reads what the first one wrote
	reopened, err := NewRSVPStore(path)
	require.NoError(t, err)
	rsvps, err = reopened.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 2)
	assert.Equal(t, "Jane Doe", rsvps[0].Name)
	assert.Equal(t, 2, rsvps[0].Guests)
	assert.Equal(t, "Congrats!", rsvps[0].Message)
	assert.Equal(t, "John Smith", rsvps[1].Name)
	assert.False(t, rsvps[0].Timestamp.Before(before))
	assert.False(t, rsvps[1].Timestamp.Before(rsvps[0].Timestamp))
}

func TestRSVPStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store, err := NewRSVPStore(filepath.Join(t.TempDir(), "rsvps.json"))
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "Jane", 1, "")
	require.NoError(t, err)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	rsvps[0].Name = "changed"

	rsvps, err = store.ListRSVPs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jane", rsvps[0].Name)
}

func TestRSVPStore_Invalid(t *testing.T) {
	store, err := NewRSVPStore(filepath.Join(t.TempDir(), "rsvps.json"))
	require.NoError(t, err)

	_, err = store.AppendRSVP(context.Background(), "", 1, "")
	require.ErrorIs(t, err, db.ErrInvalidRSVP)
}

func TestNewRSVPStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsvps.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewRSVPStore(path)
	require.Error(t, err)
}

func TestRSVPStore_CRLFMessage(t *testing.T) {
	ctx := context.Background()
	store, err := NewRSVPStore(filepath.Join(t.TempDir(), "rsvps.json"))
	require.NoError(t, err)

	rsvp, err := store.AppendRSVP(ctx, "Jane", 1, "a\r\nb")
	require.NoError(t, err)
	assert.Equal(t, "a\nb", rsvp.Message)

	rsvps, err := store.ListRSVPs(ctx)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)
	assert.Equal(t, "a\nb", rsvps[0].Message)
}

func TestRSVPStore_CreatesDirectory(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "rsvps.json")
	store, err := NewRSVPStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))
	assert.FileExists(t, path)

	path = filepath.Join(t.TempDir(), "other", "rsvps.json")
	store, err = NewRSVPStore(path)
	require.NoError(t, err)
	_, err = store.AppendRSVP(ctx, "Jane", 1, "")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketchdash/internal/artifact"
	"sketchdash/internal/store"
)

func roomDoc(createdAt time.Time) store.Doc {
	return store.Doc{
		"status":    "lobby",
		"createdAt": createdAt.Format(time.RFC3339Nano),
	}
}

func newTestReaper(t *testing.T) (*Reaper, *store.Memory, *artifact.Memory, *time.Time) {
	t.Helper()
	mem := store.NewMemory()
	blobs := artifact.NewMemory(0)
	r := New(mem, blobs, 24*time.Hour, zerolog.Nop())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, mem, blobs, &now
}

func TestSweepReapsStaleRooms(t *testing.T) {
	r, mem, blobs, now := newTestReaper(t)
	ctx := context.Background()

	require.NoError(t, mem.Create(ctx, "rooms/OLD11", roomDoc(now.Add(-25*time.Hour))))
	require.NoError(t, mem.Create(ctx, "rooms/NEW11", roomDoc(now.Add(-time.Hour))))
	_, err := blobs.Put(ctx, "OLD11", []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	_, err = blobs.Put(ctx, "NEW11", []byte{4, 5, 6}, "image/png")
	require.NoError(t, err)

	r.Sweep(ctx)

	_, err = mem.ReadOnce(ctx, "rooms/OLD11")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.ReadOnce(ctx, "rooms/NEW11")
	assert.NoError(t, err, "young room untouched")

	rooms, err := blobs.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NEW11"}, rooms)
}

func TestSweepRemovesOrphanedArtifacts(t *testing.T) {
	r, mem, blobs, now := newTestReaper(t)
	ctx := context.Background()

	require.NoError(t, mem.Create(ctx, "rooms/LIVE1", roomDoc(now.Add(-time.Hour))))
	_, err := blobs.Put(ctx, "LIVE1", []byte{1}, "image/png")
	require.NoError(t, err)
	// Artifacts whose room is already gone.
	_, err = blobs.Put(ctx, "GONE1", []byte{2}, "image/png")
	require.NoError(t, err)

	r.Sweep(ctx)

	rooms, err := blobs.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"LIVE1"}, rooms)
}

func TestSweepIsIdempotent(t *testing.T) {
	r, mem, blobs, now := newTestReaper(t)
	ctx := context.Background()

	require.NoError(t, mem.Create(ctx, "rooms/OLD11", roomDoc(now.Add(-48*time.Hour))))
	require.NoError(t, mem.Create(ctx, "rooms/NEW11", roomDoc(*now)))

	r.Sweep(ctx)
	afterOnce, err := mem.List(ctx, "rooms")
	require.NoError(t, err)

	r.Sweep(ctx)
	afterTwice, err := mem.List(ctx, "rooms")
	require.NoError(t, err)

	assert.Equal(t, afterOnce, afterTwice)
	assert.Len(t, afterTwice, 1)
	assert.Contains(t, afterTwice, "rooms/NEW11")

	rooms, err := blobs.Rooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

// A raw write can land a document at the bare collection key. The sweep
// must skip it, not slice past it, and still reap real rooms.
func TestSweepSkipsBareCollectionKey(t *testing.T) {
	r, mem, _, now := newTestReaper(t)
	ctx := context.Background()

	require.NoError(t, mem.Create(ctx, "rooms", store.Doc{"junk": true}))
	require.NoError(t, mem.Create(ctx, "rooms/OLD11", roomDoc(now.Add(-25*time.Hour))))

	r.Sweep(ctx)

	_, err := mem.ReadOnce(ctx, "rooms/OLD11")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = mem.ReadOnce(ctx, "rooms")
	assert.NoError(t, err, "non-room document untouched")
}

func TestSweepReapsRoomsWithoutCreatedAt(t *testing.T) {
	r, mem, _, _ := newTestReaper(t)
	ctx := context.Background()

	require.NoError(t, mem.Create(ctx, "rooms/BROKE", store.Doc{"status": "lobby"}))
	r.Sweep(ctx)

	_, err := mem.ReadOnce(ctx, "rooms/BROKE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

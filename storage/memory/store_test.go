package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmirror/calmirror/event"
	"github.com/calmirror/calmirror/storage"
)

func TestEventRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	ev := &event.Record{
		ID:         42,
		UID:        "event-1-ab12cd34@caldavclient.local",
		CalendarID: 7,
		Title:      "Standup",
		StartDate:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC),
		Attendees:  []event.Attendee{{ID: 1, Email: "alice@example.com"}},
		Active:     true,
	}
	require.NoError(t, store.PersistEvent(ctx, ev))

	got, err := store.FetchEvent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, *ev, *got)

	// stored state is isolated from later caller mutation
	got.Attendees[0].Email = "mallory@example.com"
	again, err := store.FetchEvent(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", again.Attendees[0].Email)
}

func TestFetchEventNotFound(t *testing.T) {
	store := New()
	_, err := store.FetchEvent(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPersistEventRejectsInvalid(t *testing.T) {
	store := New()
	assert.ErrorIs(t, store.PersistEvent(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.PersistEvent(context.Background(), &event.Record{}), storage.ErrInvalidInput)
}

func TestUIDMappingFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.StoreUIDMapping(ctx, 42, "event-1-aaaaaaaa@caldavclient.local", 7))

	err := store.StoreUIDMapping(ctx, 42, "event-1-bbbbbbbb@caldavclient.local", 7)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	uid, err := store.FetchUIDMapping(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "event-1-aaaaaaaa@caldavclient.local", uid)
	assert.Equal(t, 1, store.MappingCount())
}

func TestUIDMappingValidation(t *testing.T) {
	ctx := context.Background()
	store := New()

	assert.ErrorIs(t, store.StoreUIDMapping(ctx, 0, "u@x", 7), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.StoreUIDMapping(ctx, 1, "", 7), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.StoreUIDMapping(ctx, 1, "u@x", 0), storage.ErrInvalidInput)

	_, err := store.FetchUIDMapping(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

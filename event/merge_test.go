package event

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedRecord() Record {
	return Record{
		ID:         42,
		UID:        "event-1700000000000-ab12cd34@caldavclient.local",
		CalendarID: 7,
		Title:      "Quarterly Review",
		Location:   "Room 4",
		StartDate:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		Organizer:  Organizer{Email: "boss@example.com", Name: "The Boss"},
		Attendees: []Attendee{
			{ID: 1, Name: "Alice", Email: "alice@example.com", Role: "REQ-PARTICIPANT", Status: "ACCEPTED"},
			{ID: 2, Name: "Bob", Email: "bob@example.com"},
		},
		Resources: []Resource{
			{Email: "room4@example.com", Name: "Room 4", Type: "room"},
		},
		Sequence: 3,
		RawICS:   "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
		Active:   true,
	}
}

func TestMergeEmptyPartialIsIdentity(t *testing.T) {
	stored := storedRecord()

	merged, err := Merge(stored, Partial{})
	require.NoError(t, err)
	assert.Equal(t, stored, merged)
}

func TestMergeScalarOverwrite(t *testing.T) {
	stored := storedRecord()
	newStart := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	newEnd := time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC)

	merged, err := Merge(stored, Partial{
		Title:     mo.Some("Rescheduled Review"),
		Location:  mo.Some(""),
		StartDate: mo.Some(newStart),
		EndDate:   mo.Some(newEnd),
	})
	require.NoError(t, err)

	assert.Equal(t, "Rescheduled Review", merged.Title)
	assert.Empty(t, merged.Location, "explicit empty string clears the location")
	assert.Equal(t, newStart, merged.StartDate)
	assert.Equal(t, newEnd, merged.EndDate)
	// untouched fields survive
	assert.Equal(t, stored.Attendees, merged.Attendees)
	assert.Equal(t, stored.Organizer, merged.Organizer)
}

func TestMergeAbsentCollectionIsNoOp(t *testing.T) {
	stored := storedRecord()

	merged, err := Merge(stored, Partial{Title: mo.Some("X")})
	require.NoError(t, err)

	assert.Equal(t, stored.Attendees, merged.Attendees)
	assert.Equal(t, stored.Resources, merged.Resources)
}

func TestMergeEmptyCollectionClears(t *testing.T) {
	stored := storedRecord()

	merged, err := Merge(stored, Partial{Attendees: mo.Some([]Attendee{})})
	require.NoError(t, err)

	assert.Empty(t, merged.Attendees)
	assert.Equal(t, stored.Resources, merged.Resources, "resources were not supplied, keep them")
}

func TestMergeNonEmptyCollectionReplacesWholesale(t *testing.T) {
	stored := storedRecord()
	replacement := []Attendee{{ID: 9, Email: "carol@example.com"}}

	merged, err := Merge(stored, Partial{Attendees: mo.Some(replacement)})
	require.NoError(t, err)

	assert.Equal(t, replacement, merged.Attendees)
}

func TestMergeKeepsIdentityFields(t *testing.T) {
	stored := storedRecord()

	merged, err := Merge(stored, Partial{Title: mo.Some("X")})
	require.NoError(t, err)

	assert.Equal(t, stored.ID, merged.ID)
	assert.Equal(t, stored.UID, merged.UID)
	assert.Equal(t, stored.Sequence, merged.Sequence)
	assert.Equal(t, stored.RawICS, merged.RawICS)
}

func TestMergeIncompleteRecord(t *testing.T) {
	// first creation: no stored state, partial missing organizer and dates
	_, err := Merge(Record{ID: 1}, Partial{Title: mo.Some("Kickoff")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteRecord)
	assert.Contains(t, err.Error(), "startDate")
	assert.Contains(t, err.Error(), "organizer")
}

func TestMergeCompleteOnFirstCreation(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	merged, err := Merge(Record{ID: 1}, Partial{
		Title:      mo.Some("Kickoff"),
		StartDate:  mo.Some(start),
		EndDate:    mo.Some(start.Add(time.Hour)),
		CalendarID: mo.Some(int64(7)),
		Organizer:  mo.Some(Organizer{Email: "boss@example.com"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Kickoff", merged.Title)
	assert.Equal(t, int64(7), merged.CalendarID)
}

func TestMergeRejectsInvertedDates(t *testing.T) {
	stored := storedRecord()

	_, err := Merge(stored, Partial{
		EndDate: mo.Some(stored.StartDate.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestMergeDoesNotAliasStoredSlices(t *testing.T) {
	stored := storedRecord()

	merged, err := Merge(stored, Partial{})
	require.NoError(t, err)

	merged.Attendees[0].Name = "Mallory"
	assert.Equal(t, "Alice", stored.Attendees[0].Name)
}

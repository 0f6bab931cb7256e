package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompleteRecord is returned when a merge cannot produce a
	// structurally valid event because a required field is missing from
	// both the stored record and the incoming partial.
	ErrIncompleteRecord = errors.New("merged event is missing required fields")
	// ErrInvalidDateRange is returned when the merged end date precedes
	// the merged start date.
	ErrInvalidDateRange = errors.New("event end date precedes start date")
)

// Merge combines an incoming partial update with the last-known-good stored
// record and returns a structurally complete record.
//
// Scalar fields present in the partial overwrite the stored value; absent
// fields keep it. For the attendee and resource collections an absent field
// is a no-op, a present empty list is an explicit clear, and a present
// non-empty list replaces the stored collection wholesale.
//
// Identity (ID, UID), Sequence, RawICS, ObjectURL and ETag are always taken
// from the stored record; the codec and orchestrator own those downstream.
func Merge(stored Record, incoming Partial) (Record, error) {
	out := stored.Clone()

	if v, ok := incoming.Title.Get(); ok {
		out.Title = v
	}
	if v, ok := incoming.Description.Get(); ok {
		out.Description = v
	}
	if v, ok := incoming.Location.Get(); ok {
		out.Location = v
	}
	if v, ok := incoming.StartDate.Get(); ok {
		out.StartDate = v
	}
	if v, ok := incoming.EndDate.Get(); ok {
		out.EndDate = v
	}
	if v, ok := incoming.CalendarID.Get(); ok {
		out.CalendarID = v
	}
	if v, ok := incoming.Organizer.Get(); ok {
		out.Organizer = v
	}
	if v, ok := incoming.Attendees.Get(); ok {
		out.Attendees = make([]Attendee, len(v))
		copy(out.Attendees, v)
	}
	if v, ok := incoming.Resources.Get(); ok {
		out.Resources = make([]Resource, len(v))
		copy(out.Resources, v)
	}

	if missing := out.missingRequired(); len(missing) > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrIncompleteRecord, strings.Join(missing, ", "))
	}
	if out.EndDate.Before(out.StartDate) {
		return Record{}, ErrInvalidDateRange
	}
	return out, nil
}

func (r Record) missingRequired() []string {
	var missing []string
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.StartDate.IsZero() {
		missing = append(missing, "startDate")
	}
	if r.EndDate.IsZero() {
		missing = append(missing, "endDate")
	}
	if r.CalendarID == 0 {
		missing = append(missing, "calendarId")
	}
	if r.Organizer.Email == "" {
		missing = append(missing, "organizer")
	}
	return missing
}

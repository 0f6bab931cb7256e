package event

import (
	"time"

	"github.com/samber/mo"
)

// Organizer identifies the party issuing scheduling messages for an event.
// Email is mandatory for any outbound sync; Name is optional and only
// affects the CN parameter on the ORGANIZER line.
type Organizer struct {
	Email string
	Name  string
}

// Attendee is a person invited to an event. ID is the stable identity used
// to correlate attendees across successive updates of the same event.
type Attendee struct {
	ID     int64
	Name   string
	Email  string
	Role   string
	Status string
}

// Resource is a bookable asset (room, projector, ...) attached to an event.
// On the wire it is encoded as an ATTENDEE line with CUTYPE=RESOURCE.
type Resource struct {
	Email      string
	Name       string
	Type       string
	SubType    string
	AdminEmail string
}

// SyncStatus records the outcome of the most recent outbound sync attempt.
// It exists for observability only and is never consulted for correctness.
type SyncStatus struct {
	LastSentAt time.Time
	LastError  string
}

// Record is the canonical representation of a calendar event as held by the
// local store. UID and ID are immutable once assigned; Sequence and RawICS
// always describe the last payload acknowledged by the remote server.
type Record struct {
	ID         int64
	UID        string
	CalendarID int64

	Title       string
	Description string
	Location    string
	StartDate   time.Time
	EndDate     time.Time

	Organizer Organizer
	Attendees []Attendee
	Resources []Resource

	// Sequence is the RFC 5545 SEQUENCE of the last acknowledged payload.
	// It never regresses for a given UID.
	Sequence int

	// XProperties holds vendor-extension lines (X-...) carried verbatim
	// across re-serialization, in their original order.
	XProperties []string

	// RawICS is the last payload the remote server acknowledged. It is the
	// authoritative input for deriving the next SEQUENCE.
	RawICS string

	// ObjectURL and ETag locate the mirrored object on the CalDAV server.
	ObjectURL string
	ETag      string

	// Active is cleared when a CANCEL payload has been acknowledged. The
	// record is retained for audit; this subsystem never hard-deletes.
	Active bool

	SyncStatus SyncStatus
}

// Partial is a sparse update to a Record. Each field distinguishes three
// cases: None (leave the stored value alone), Some with a zero/empty value
// (explicitly clear it), and Some with a value (overwrite it).
//
// Identity fields (ID, UID) and Sequence have no counterpart here on
// purpose: they are owned by the stored record and the codec respectively
// and are never accepted from callers.
type Partial struct {
	Title       mo.Option[string]
	Description mo.Option[string]
	Location    mo.Option[string]
	StartDate   mo.Option[time.Time]
	EndDate     mo.Option[time.Time]
	CalendarID  mo.Option[int64]
	Organizer   mo.Option[Organizer]
	Attendees   mo.Option[[]Attendee]
	Resources   mo.Option[[]Resource]
}

// IsEmpty reports whether the partial carries no changes at all.
func (p Partial) IsEmpty() bool {
	return p.Title.IsAbsent() &&
		p.Description.IsAbsent() &&
		p.Location.IsAbsent() &&
		p.StartDate.IsAbsent() &&
		p.EndDate.IsAbsent() &&
		p.CalendarID.IsAbsent() &&
		p.Organizer.IsAbsent() &&
		p.Attendees.IsAbsent() &&
		p.Resources.IsAbsent()
}

// Clone returns a deep copy of the record. Slices are copied so that the
// caller may mutate the clone without aliasing the original.
func (r Record) Clone() Record {
	out := r
	if r.Attendees != nil {
		out.Attendees = make([]Attendee, len(r.Attendees))
		copy(out.Attendees, r.Attendees)
	}
	if r.Resources != nil {
		out.Resources = make([]Resource, len(r.Resources))
		copy(out.Resources, r.Resources)
	}
	if r.XProperties != nil {
		out.XProperties = make([]string, len(r.XProperties))
		copy(out.XProperties, r.XProperties)
	}
	return out
}

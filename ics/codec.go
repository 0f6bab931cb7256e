// Package ics serializes event records into RFC 5545 iCalendar payloads and
// recovers salient fields (SEQUENCE, vendor X- properties) from previously
// synced payloads. It is the single place in the module that knows the wire
// grammar; everything else treats ICS text as opaque.
package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calmirror/calmirror/event"
)

// Operation selects the iTIP METHOD of an outbound payload.
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
	OpCancel
)

// Method returns the METHOD property value for the operation.
func (op Operation) Method() string {
	switch op {
	case OpCreate:
		return "PUBLISH"
	case OpUpdate:
		return "REQUEST"
	case OpCancel:
		return "CANCEL"
	default:
		return "PUBLISH"
	}
}

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ErrMissingField is returned when the record lacks data the wire format
// cannot do without (UID, organizer, start/end dates).
var ErrMissingField = errors.New("event is missing a required field for encoding")

const (
	// DefaultProductID is emitted as PRODID unless the encoder is
	// configured otherwise.
	DefaultProductID = "-//calmirror//Go Calendar Sync//EN"

	// wireDateLayout is ISO 8601 basic format, UTC, second precision.
	wireDateLayout = "20060102T150405Z"

	crlf = "\r\n"
)

// Encoder produces iCalendar payloads. The zero value is not usable; call
// NewEncoder. Now is injectable so tests can pin DTSTAMP.
type Encoder struct {
	ProductID string
	Now       func() time.Time
}

// NewEncoder returns an Encoder with the default PRODID and wall clock.
func NewEncoder() *Encoder {
	return &Encoder{
		ProductID: DefaultProductID,
		Now:       time.Now,
	}
}

// Encode serializes ev into a complete VCALENDAR payload for the given
// operation. prior, when non-empty, is the last payload acknowledged by the
// remote server: its SEQUENCE is incremented and its X- properties are
// carried over verbatim. A prior payload with an unparsable SEQUENCE is
// treated as if there were none; historical data the codec does not own is
// never a reason to fail an encode.
//
// The output is deterministic: identical inputs (including the clock)
// produce byte-identical payloads, which the orchestrator relies on for
// idempotent retries.
func (e *Encoder) Encode(ev event.Record, op Operation, prior string) (string, error) {
	if ev.UID == "" {
		return "", fmt.Errorf("%w: uid", ErrMissingField)
	}
	if ev.Organizer.Email == "" {
		return "", fmt.Errorf("%w: organizer", ErrMissingField)
	}
	if ev.StartDate.IsZero() {
		return "", fmt.Errorf("%w: dtstart", ErrMissingField)
	}
	if ev.EndDate.IsZero() {
		return "", fmt.Errorf("%w: dtend", ErrMissingField)
	}

	seq := e.nextSequence(ev, op, prior)

	xprops := ev.XProperties
	if prior != "" {
		xprops = ExtractXProperties(prior)
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString(crlf)
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:" + e.ProductID)
	line("METHOD:" + op.Method())
	line("BEGIN:VEVENT")
	line("UID:" + ev.UID)
	line("SUMMARY:" + EscapeText(ev.Title))
	line("DTSTART:" + ev.StartDate.UTC().Format(wireDateLayout))
	line("DTEND:" + ev.EndDate.UTC().Format(wireDateLayout))
	line("DTSTAMP:" + e.now().UTC().Format(wireDateLayout))
	line(fmt.Sprintf("SEQUENCE:%d", seq))
	if op == OpCancel {
		line("STATUS:CANCELLED")
	}
	line(organizerLine(ev.Organizer))
	if ev.Location != "" {
		line("LOCATION:" + EscapeText(ev.Location))
	}
	if ev.Description != "" {
		line("DESCRIPTION:" + EscapeText(ev.Description))
	}
	for _, a := range ev.Attendees {
		line(attendeeLine(a))
	}
	for _, r := range ev.Resources {
		line(resourceLine(r))
	}
	for _, x := range xprops {
		line(x)
	}
	line("END:VEVENT")
	line("END:VCALENDAR")

	return b.String(), nil
}

func (e *Encoder) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// nextSequence derives the SEQUENCE for the outgoing payload. A readable
// prior payload wins; otherwise the record's own sequence is used when set,
// falling back to 0, or 1 for a cancellation that was never synced (the
// receiving client must still treat it as newer than anything it has).
func (e *Encoder) nextSequence(ev event.Record, op Operation, prior string) int {
	if prior != "" {
		if s, ok := ExtractSequence(prior); ok {
			return s + 1
		}
	}
	if ev.Sequence > 0 {
		return ev.Sequence
	}
	if op == OpCancel {
		return 1
	}
	return 0
}

func organizerLine(o event.Organizer) string {
	if o.Name != "" {
		return "ORGANIZER;CN=" + EscapeText(o.Name) + ":mailto:" + o.Email
	}
	return "ORGANIZER:mailto:" + o.Email
}

// attendeeLine renders ATTENDEE[;CN=][;ROLE=];PARTSTAT=...:mailto:...
// PARTSTAT defaults to NEEDS-ACTION per attendee; one attendee carrying an
// explicit status never changes the default applied to another.
func attendeeLine(a event.Attendee) string {
	var b strings.Builder
	b.WriteString("ATTENDEE")
	if a.Name != "" {
		b.WriteString(";CN=")
		b.WriteString(EscapeText(a.Name))
	}
	if a.Role != "" {
		b.WriteString(";ROLE=")
		b.WriteString(a.Role)
	}
	b.WriteString(";PARTSTAT=")
	b.WriteString(partstat(a.Status))
	b.WriteString(":mailto:")
	b.WriteString(a.Email)
	return b.String()
}

// resourceLine renders the same grammar as attendeeLine but with
// CUTYPE=RESOURCE and an X-RESOURCE-TYPE parameter instead of ROLE. SubType
// is preferred over Type when both are present.
func resourceLine(r event.Resource) string {
	var b strings.Builder
	b.WriteString("ATTENDEE;CUTYPE=RESOURCE")
	if r.Name != "" {
		b.WriteString(";CN=")
		b.WriteString(EscapeText(r.Name))
	}
	if t := resourceType(r); t != "" {
		b.WriteString(";X-RESOURCE-TYPE=")
		b.WriteString(t)
	}
	b.WriteString(";PARTSTAT=NEEDS-ACTION:mailto:")
	b.WriteString(r.Email)
	return b.String()
}

func resourceType(r event.Resource) string {
	if r.SubType != "" {
		return r.SubType
	}
	return r.Type
}

func partstat(status string) string {
	if status == "" {
		return "NEEDS-ACTION"
	}
	return status
}

// EscapeText escapes free text per RFC 5545 section 3.3.11: backslash,
// semicolon, comma and newline.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, "\\", `\\`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

package ics

import (
	"fmt"
	"strings"

	"github.com/emersion/go-ical"
)

// ParseEvent decodes a full ICS payload and returns its single VEVENT.
// It is used to cross-check locally held state against what the remote
// server acknowledged; the tolerant extractors above remain the path for
// pulling individual fields out of possibly-degraded historical payloads.
func ParseEvent(ics string) (*ical.Event, error) {
	dec := ical.NewDecoder(strings.NewReader(ics))

	cal, err := dec.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode calendar: %w", err)
	}

	events := cal.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("no events found in calendar")
	}
	if len(events) > 1 {
		return nil, fmt.Errorf("multiple events found in calendar")
	}
	return &events[0], nil
}

package ics

import (
	"strconv"
	"strings"
)

// ExtractSequence scans an ICS payload for its SEQUENCE property and
// returns the parsed value. A missing or unparsable SEQUENCE yields
// ok=false; callers treat that as "no prior sequence" rather than an
// error, favoring forward progress over strict validation of historical
// payloads this module does not own.
func ExtractSequence(ics string) (seq int, ok bool) {
	for _, l := range lines(ics) {
		rest, found := strings.CutPrefix(l, "SEQUENCE:")
		if !found {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || n < 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// ExtractXProperties returns every vendor-extension line (X-NAME:value) in
// the payload, verbatim and in original order. Unknown X- properties are
// opaque to this module but must survive re-serialization, so the lines are
// returned untouched.
func ExtractXProperties(ics string) []string {
	var props []string
	for _, l := range lines(ics) {
		if isXProperty(l) {
			props = append(props, l)
		}
	}
	return props
}

func isXProperty(line string) bool {
	if !strings.HasPrefix(line, "X-") {
		return false
	}
	idx := strings.IndexByte(line, ':')
	// needs a name between "X-" and the colon, and a non-empty value
	return idx > 2 && idx < len(line)-1
}

// lines splits an ICS payload on line terminators, tolerating both CRLF
// (the RFC 5545 form) and bare LF (seen from lenient producers).
func lines(ics string) []string {
	raw := strings.Split(ics, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}

// Package reference normalizes raw user input into canonical process
// identifiers. All functions are pure; callers decide what to do with
// invalid input.
package reference

import (
	"regexp"
	"strings"
)

// Kind classifies how a canonical identifier was derived from raw input.
type Kind string

const (
	// KindID means the input was the bare identifier itself.
	KindID Kind = "id"
	// KindURL means the identifier was extracted from the final path
	// segment of a pasted URL.
	KindURL Kind = "url"
	// KindInvalid means no identifier could be derived.
	KindInvalid Kind = "invalid"
)

// editorBaseURL is the public process-editor location used for display links.
const editorBaseURL = "https://www.fabublox.com/process-editor"

// idPattern is the identifier grammar: a UUID-shaped token with an
// optional single trailing slash, case-insensitive.
var idPattern = regexp.MustCompile(`^(?i:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})/?$`)

// Reference is the result of normalizing one piece of raw input.
type Reference struct {
	Raw         string `json:"raw_input"`
	CanonicalID string `json:"canonical_id,omitempty"`
	Kind        Kind   `json:"source_kind"`
}

// Valid reports whether a canonical identifier was derived.
func (r Reference) Valid() bool {
	return r.CanonicalID != ""
}

// Normalize turns raw text into a canonical process reference.
//
// The trimmed input is first tested against the identifier grammar
// directly. Failing that, it is treated as a URL and only the final path
// segment is tested. The canonical form is always lowercase with any
// trailing slash stripped. Normalize is idempotent: feeding a canonical
// identifier back in yields the same identifier.
func Normalize(input string) Reference {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Reference{Raw: input, Kind: KindInvalid}
	}

	if idPattern.MatchString(trimmed) {
		return Reference{Raw: input, CanonicalID: canonical(trimmed), Kind: KindID}
	}

	// URL form: test the final path segment only. A single trailing
	// slash belongs to the segment, not to an empty segment after it.
	segments := strings.Split(strings.TrimSuffix(trimmed, "/"), "/")
	last := segments[len(segments)-1]
	if len(segments) > 1 && idPattern.MatchString(last) {
		return Reference{Raw: input, CanonicalID: canonical(last), Kind: KindURL}
	}

	return Reference{Raw: input, Kind: KindInvalid}
}

// EditorURL builds the public editor link for a canonical identifier.
// Returns empty string for empty input.
func EditorURL(canonicalID string) string {
	if canonicalID == "" {
		return ""
	}
	return editorBaseURL + "/" + canonicalID
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSuffix(s, "/"))
}

// Package field tracks the two per-topic custom-field slots (the process
// reference and its rendered preview) across editing surfaces, and owns
// the inheritance and commit rules.
package field

import (
	"context"

	"github.com/jacksnnn/fabublox-process-selector/internal/reference"
)

// Config names the two slots. Injected at construction; field names are
// deployment configuration and are never resolved dynamically.
type Config struct {
	PrimaryName string
	PreviewName string
}

// State of one track within an editing session.
type State int

const (
	// Unset: no value anywhere.
	Unset State = iota
	// Inherited: transient value copied from a parent document.
	Inherited
	// UserEdited: the user touched the input; transient value replaced.
	UserEdited
	// Committed: the value is persisted on the owning document.
	Committed
)

func (s State) String() string {
	switch s {
	case Inherited:
		return "inherited"
	case UserEdited:
		return "user-edited"
	case Committed:
		return "committed"
	default:
		return "unset"
	}
}

// Policy decides what an invalid reference does to the transient value.
// Each call site picks exactly one policy and keeps it.
type Policy int

const (
	// Discard clears the transient value on invalid input. Used by the
	// new-topic composer.
	Discard Policy = iota
	// Preserve keeps the previous value and retains the raw text for
	// redisplay. Used by the title-bar edit surface.
	Preserve
)

// Values is a committed snapshot of both slots. Empty string means unset.
type Values struct {
	Primary string
	Preview string
}

// Store persists committed slot values, keyed by document and field name.
type Store interface {
	SetField(ctx context.Context, docID, name, value string) error
	Field(ctx context.Context, docID, name string) (string, error)
	DocumentFields(ctx context.Context, docID string) (map[string]string, error)
}

type track struct {
	state State
	value string
	raw   string
}

// Editor is one editing session over a single document. It holds
// transient, uncommitted copies of both tracks until Commit.
//
// Only one surface owns an Editor at a time; it is not safe for
// concurrent use.
type Editor struct {
	cfg     Config
	primary track
	preview track
}

// NewEditor opens an editing session seeded from the document's committed
// values, inheriting from parent where the committed slot is empty.
// Tracks inherit independently: a missing parent preview does not block
// inheriting the primary value, and vice versa.
func NewEditor(cfg Config, committed Values, parent *Values) *Editor {
	e := &Editor{cfg: cfg}
	e.primary = seedTrack(committed.Primary, parentValue(parent, func(v *Values) string { return v.Primary }))
	e.preview = seedTrack(committed.Preview, parentValue(parent, func(v *Values) string { return v.Preview }))
	return e
}

func parentValue(parent *Values, pick func(*Values) string) string {
	if parent == nil {
		return ""
	}
	return pick(parent)
}

// seedTrack applies the inheritance rule: a non-empty committed value
// always wins over the parent's.
func seedTrack(committed, parent string) track {
	if committed != "" {
		return track{state: Committed, value: committed}
	}
	if parent != "" {
		return track{state: Inherited, value: parent}
	}
	return track{state: Unset}
}

// SetPrimary normalizes raw input and updates the primary track. Invalid
// input follows the call site's policy: Discard clears the transient
// value, Preserve keeps it and records the raw text for redisplay.
func (e *Editor) SetPrimary(input string, policy Policy) reference.Reference {
	ref := reference.Normalize(input)
	e.primary.raw = input
	e.primary.state = UserEdited
	if ref.Valid() {
		e.primary.value = ref.CanonicalID
	} else if policy == Discard {
		e.primary.value = ""
	}
	return ref
}

// SetPreview replaces the transient preview payload.
func (e *Editor) SetPreview(payload string) {
	e.preview.value = payload
	e.preview.state = UserEdited
}

// Primary returns the transient primary value and its state.
func (e *Editor) Primary() (string, State) {
	return e.primary.value, e.primary.state
}

// PrimaryRaw returns the last raw input, for redisplay under Preserve.
func (e *Editor) PrimaryRaw() string {
	return e.primary.raw
}

// Preview returns the transient preview payload and its state.
func (e *Editor) Preview() (string, State) {
	return e.preview.value, e.preview.state
}

// Commit persists both tracks on the owning document. UserEdited and
// untouched Inherited values commit; both tracks end Committed.
func (e *Editor) Commit(ctx context.Context, s Store, docID string) (Values, error) {
	if err := s.SetField(ctx, docID, e.cfg.PrimaryName, e.primary.value); err != nil {
		return Values{}, err
	}
	if err := s.SetField(ctx, docID, e.cfg.PreviewName, e.preview.value); err != nil {
		return Values{}, err
	}
	e.primary.state = Committed
	e.preview.state = Committed
	return Values{Primary: e.primary.value, Preview: e.preview.value}, nil
}

// CommittedValues reads the document's committed slots. Viewing surfaces
// use this directly and never open an Editor.
func CommittedValues(ctx context.Context, s Store, cfg Config, docID string) (Values, error) {
	primary, err := s.Field(ctx, docID, cfg.PrimaryName)
	if err != nil {
		return Values{}, err
	}
	preview, err := s.Field(ctx, docID, cfg.PreviewName)
	if err != nil {
		return Values{}, err
	}
	return Values{Primary: primary, Preview: preview}, nil
}

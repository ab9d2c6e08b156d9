// Package topicservice coordinates the field lifecycle store, the active
// field configuration, and commit notifications for the API layer.
package topicservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jacksnnn/fabublox-process-selector/internal/field"
	"github.com/jacksnnn/fabublox-process-selector/internal/notify"
	"github.com/jacksnnn/fabublox-process-selector/internal/reference"
)

// Editing surfaces. Each surface has a fixed invalid-input policy.
const (
	SurfaceComposer  = "composer"
	SurfaceTitleEdit = "title-edit"
)

// Service owns committed field state for topics.
type Service struct {
	store  field.Store
	reg    *field.Registry
	broker *notify.Broker
	logger *slog.Logger
}

// NewService creates the topic field service. broker may be nil when no
// event stream is wired (tests).
func NewService(store field.Store, reg *field.Registry, broker *notify.Broker, logger *slog.Logger) *Service {
	return &Service{store: store, reg: reg, broker: broker, logger: logger}
}

// Committed returns a topic's committed slots with the configuration
// they were read under. Viewing surfaces use this; it never mutates.
// The topic record's field bag is read whole and accessed through the
// adapter, so slots other than ours pass through untouched.
func (s *Service) Committed(ctx context.Context, docID string) (field.Values, field.Config, error) {
	cfg := s.reg.Current()
	fields, err := s.store.DocumentFields(ctx, docID)
	if err != nil {
		return field.Values{}, cfg, err
	}
	topic := &field.Topic{ID: docID, CustomFields: fields}
	return field.NewTopicAdapter(topic, cfg).Values(), cfg, nil
}

// EditRequest describes one editing session's save. Nil RawInput or
// Preview means the user never touched that track; an untouched
// inherited value still commits.
type EditRequest struct {
	DocID    string
	Surface  string
	ParentID string
	RawInput *string
	Preview  *string
}

// CommitEdit replays an editing session against the committed state and
// persists the result. The surface selects the invalid-input policy:
// the composer discards, title edit preserves.
func (s *Service) CommitEdit(ctx context.Context, req EditRequest) (field.Values, reference.Reference, error) {
	policy, err := policyFor(req.Surface)
	if err != nil {
		return field.Values{}, reference.Reference{}, err
	}

	cfg := s.reg.Current()
	committed, err := field.CommittedValues(ctx, s.store, cfg, req.DocID)
	if err != nil {
		return field.Values{}, reference.Reference{}, err
	}

	var parent *field.Values
	if req.ParentID != "" {
		pv, err := field.CommittedValues(ctx, s.store, cfg, req.ParentID)
		if err != nil {
			return field.Values{}, reference.Reference{}, err
		}
		parent = &pv
	}

	editor := field.NewEditor(cfg, committed, parent)

	var ref reference.Reference
	if req.RawInput != nil {
		ref = editor.SetPrimary(*req.RawInput, policy)
	}
	if req.Preview != nil {
		editor.SetPreview(*req.Preview)
	}

	vals, err := editor.Commit(ctx, s.store, req.DocID)
	if err != nil {
		return field.Values{}, reference.Reference{}, err
	}

	s.logger.Info("topic fields committed",
		slog.String("doc", req.DocID),
		slog.String("surface", req.Surface),
		slog.Bool("has_reference", vals.Primary != ""))
	if s.broker != nil {
		s.broker.PublishFieldCommit(req.DocID, []string{cfg.PrimaryName, cfg.PreviewName})
	}
	return vals, ref, nil
}

func policyFor(surface string) (field.Policy, error) {
	switch surface {
	case SurfaceComposer:
		return field.Discard, nil
	case SurfaceTitleEdit:
		return field.Preserve, nil
	default:
		return 0, fmt.Errorf("unknown editing surface %q", surface)
	}
}

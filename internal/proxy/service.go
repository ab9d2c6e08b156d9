// Package proxy implements the secure server-side gateway to the
// external process metadata service. It resolves the caller's delegated
// credential from server-held state and forwards upstream; the credential
// and the caller's upstream account identifier never reach a client.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
	"github.com/jacksnnn/fabublox-process-selector/internal/session"
	"github.com/jacksnnn/fabublox-process-selector/internal/token"
	"github.com/jacksnnn/fabublox-process-selector/internal/upstream"
)

// ProcessMetadata is the client-facing shape of one process document.
// It deliberately omits the thumbnail payload and any account identity.
type ProcessMetadata struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	IsPrivate     bool      `json:"is_private"`
}

// Call is the unit of work a client hands to the proxy. It carries no
// credential; the server attaches one.
type Call struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
}

// Service is the secure proxy. It holds no cross-request state.
type Service struct {
	resolver *token.Resolver
	up       *upstream.Client
	logger   *slog.Logger
}

// NewService creates the proxy over a token resolver and upstream client.
func NewService(resolver *token.Resolver, up *upstream.Client, logger *slog.Logger) *Service {
	return &Service{resolver: resolver, up: up, logger: logger}
}

// credential authorizes the session and resolves its delegated
// credential. Every proxied operation goes through here first; nothing
// is forwarded upstream without it.
func (s *Service) credential(ctx context.Context, sess *session.Session) (token.Credential, error) {
	if !sess.Authenticated() {
		return "", apperr.ErrAuthorizationRequired
	}
	cred, err := s.resolver.Resolve(ctx, sess)
	if err != nil {
		s.logger.Warn("proxy: credential unavailable", slog.String("user", sess.User.ID))
		return "", fmt.Errorf("resolve credential: %w", err)
	}
	return cred, nil
}

// Authenticated forwards an arbitrary endpoint call upstream with the
// session's credential attached. The endpoint's leading slash is
// stripped; caller params travel as extra headers. The upstream JSON is
// returned verbatim.
func (s *Service) Authenticated(ctx context.Context, sess *session.Session, call Call) (json.RawMessage, error) {
	cred, err := s.credential(ctx, sess)
	if err != nil {
		return nil, err
	}
	endpoint := strings.TrimPrefix(call.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty endpoint", apperr.ErrNotFound)
	}

	out, err := s.up.Forward(ctx, string(cred), endpoint, call.Params)
	if err != nil {
		s.logFailure(sess, endpoint, err)
		return nil, err
	}
	return out, nil
}

// Token resolves the session's credential for the current-user-token
// endpoint.
func (s *Service) Token(ctx context.Context, sess *session.Session) (token.Credential, error) {
	return s.credential(ctx, sess)
}

// UserProcesses returns the caller's processes, most recently updated
// first. The upstream account identifier is read from server-held user
// state and never leaves this package.
func (s *Service) UserProcesses(ctx context.Context, sess *session.Session) ([]ProcessMetadata, error) {
	cred, err := s.credential(ctx, sess)
	if err != nil {
		return nil, err
	}
	accountID := sess.User.UpstreamAccountID
	if accountID == "" {
		s.logger.Warn("proxy: user has no upstream account", slog.String("user", sess.User.ID))
		return []ProcessMetadata{}, nil
	}

	procs, err := s.up.UserProcesses(ctx, string(cred), accountID)
	if err != nil {
		s.logFailure(sess, "user/processes", err)
		return nil, err
	}

	out := make([]ProcessMetadata, len(procs))
	for i, p := range procs {
		out[i] = toMetadata(p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
	})
	return out, nil
}

// ProcessByID returns one process's metadata, or nil when the upstream
// reports it missing.
func (s *Service) ProcessByID(ctx context.Context, sess *session.Session, id string) (*ProcessMetadata, error) {
	cred, err := s.credential(ctx, sess)
	if err != nil {
		return nil, err
	}
	p, err := s.up.ProcessByID(ctx, string(cred), id)
	if err != nil {
		if ue, ok := apperr.AsUpstream(err); ok && ue.Status == 404 {
			return nil, nil
		}
		s.logFailure(sess, "process", err)
		return nil, err
	}
	md := toMetadata(*p)
	return &md, nil
}

// ProcessSVG returns the rendered preview for a process: the upstream
// thumbnail when present, otherwise a deterministic placeholder carrying
// the identifier's first characters.
func (s *Service) ProcessSVG(ctx context.Context, sess *session.Session, id string) (string, error) {
	cred, err := s.credential(ctx, sess)
	if err != nil {
		return "", err
	}
	p, err := s.up.ProcessSVG(ctx, string(cred), id)
	if err != nil {
		s.logFailure(sess, "process/svg", err)
		return "", err
	}
	if p.Thumbnail != "" {
		return p.Thumbnail, nil
	}
	return PlaceholderSVG(id), nil
}

// PlaceholderSVG renders the fallback preview shown when the upstream has
// no thumbnail for a process.
func PlaceholderSVG(id string) string {
	label := id
	if len(label) > 8 {
		label = label[:8]
	}
	return fmt.Sprintf(`<svg width="100" height="100" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100" height="100" fill="#f0f0f0" />`+
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="Arial" font-size="14">%s</text>`+
		`</svg>`, label)
}

func toMetadata(p upstream.Process) ProcessMetadata {
	return ProcessMetadata{
		ID:            p.ProcessID,
		Name:          p.ProcessName,
		Description:   p.Desc,
		LastUpdatedAt: p.LastUpdatedAt,
		IsPrivate:     p.IsPrivate,
	}
}

// logFailure records an upstream problem without leaking the credential
// or the account identifier; only coarse detail is logged.
func (s *Service) logFailure(sess *session.Session, endpoint string, err error) {
	attrs := []any{
		slog.String("endpoint", endpoint),
		slog.String("user", sess.User.ID),
	}
	if ue, ok := apperr.AsUpstream(err); ok && ue.Status != 0 {
		attrs = append(attrs, slog.Int("status", ue.Status))
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.Error("proxy: upstream call failed", attrs...)
}

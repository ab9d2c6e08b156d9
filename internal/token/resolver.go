// Package token acquires the delegated upstream credential for an
// authenticated session through an ordered chain of fallback sources.
package token

import (
	"context"
	"log/slog"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// Credential is an opaque bearer token. It has no parsed structure, is
// resolved per request, and must never be persisted beyond the resolving
// call or included in anything sent to a client.
type Credential string

// devPlaceholderCredential is returned only when the deployment is
// recognized as development and every real strategy came up empty.
const devPlaceholderCredential = "dev-placeholder-token"

// Strategy is one source of a credential. A miss — parse error, network
// error, missing field, empty value — is reported as an error or an empty
// credential; either way the chain moves on to the next strategy.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, sess *session.Session) (Credential, error)
}

// Resolver walks its strategies in declared order and returns the first
// non-empty credential.
type Resolver struct {
	strategies  []Strategy
	devFallback bool
	logger      *slog.Logger
}

// NewResolver creates a resolver over the given strategies. devFallback
// permits the placeholder credential; it must be false in production.
func NewResolver(strategies []Strategy, devFallback bool, logger *slog.Logger) *Resolver {
	return &Resolver{strategies: strategies, devFallback: devFallback, logger: logger}
}

// Resolve returns the session's delegated credential, or
// apperr.ErrTokenUnavailable once every strategy is exhausted. A failing
// strategy never aborts the chain.
func (r *Resolver) Resolve(ctx context.Context, sess *session.Session) (Credential, error) {
	for _, s := range r.strategies {
		cred, err := s.Resolve(ctx, sess)
		if err != nil {
			r.logger.Debug("token: strategy miss",
				slog.String("strategy", s.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if cred != "" {
			r.logger.Debug("token: resolved", slog.String("strategy", s.Name()))
			return cred, nil
		}
	}
	if r.devFallback {
		r.logger.Warn("token: using development placeholder credential")
		return devPlaceholderCredential, nil
	}
	return "", apperr.ErrTokenUnavailable
}

// Package session defines the server-held per-user state that backs
// authentication and credential resolution. The forum's identity layer
// owns users; this service only reads the state it captured at sign-in.
package session

import "context"

// User is the server-side view of a forum account.
//
// UpstreamAccountID is the account identifier at the external process
// service. It is used to build upstream request paths and must never
// appear in anything returned to a client.
type User struct {
	ID                string
	Username          string
	UpstreamAccountID string
	CustomFields      map[string]string
}

// Session is one authenticated browser session.
//
// TokenCookie and Artifact are credential sources captured server-side
// when the identity provider completed sign-in. Both are optional; the
// token resolver treats an empty source as a miss.
type Session struct {
	ID          string
	User        *User
	TokenCookie string // provider token cookie value, may be empty
	Artifact    string // raw cached identity artifact (JSON), may be empty
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil
}

// Provider looks sessions up by their opaque ID.
type Provider interface {
	SessionByID(ctx context.Context, id string) (*Session, error)
}

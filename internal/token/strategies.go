package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/session"
)

// Options configures the built-in strategy chain. Empty URLs disable
// their strategies (they yield nothing and the chain moves on).
type Options struct {
	IntegrationTokenURL string
	IdentityURL         string
	FallbackTokenURL    string
	CookieName          string
	HTTPClient          *http.Client
}

// DefaultStrategies builds the canonical chain, most to least preferred:
// dedicated integration token endpoint, cached identity artifact, token
// cookie, then the generic identity endpoint with its secondary fallback.
func DefaultStrategies(opts Options) []Strategy {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return []Strategy{
		&integrationEndpoint{url: opts.IntegrationTokenURL, client: client},
		&cachedArtifact{},
		&tokenCookie{name: opts.CookieName},
		&identityEndpoint{url: opts.IdentityURL, fallbackURL: opts.FallbackTokenURL, client: client},
	}
}

// integrationEndpoint asks the dedicated first-party token endpoint
// scoped to this integration.
type integrationEndpoint struct {
	url    string
	client *http.Client
}

func (s *integrationEndpoint) Name() string { return "integration-endpoint" }

func (s *integrationEndpoint) Resolve(ctx context.Context, sess *session.Session) (Credential, error) {
	if s.url == "" {
		return "", nil
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := getJSON(ctx, s.client, s.url, sess.ID, &body); err != nil {
		return "", err
	}
	return Credential(body.Token), nil
}

// cachedArtifact extracts the embedded token field from the identity
// artifact captured at sign-in.
type cachedArtifact struct{}

func (s *cachedArtifact) Name() string { return "cached-artifact" }

func (s *cachedArtifact) Resolve(_ context.Context, sess *session.Session) (Credential, error) {
	if sess.Artifact == "" {
		return "", nil
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(sess.Artifact), &body); err != nil {
		return "", fmt.Errorf("parse artifact: %w", err)
	}
	return Credential(body.Token), nil
}

// tokenCookie reads the provider token cookie captured on the session.
type tokenCookie struct {
	name string
}

func (s *tokenCookie) Name() string { return "token-cookie" }

func (s *tokenCookie) Resolve(_ context.Context, sess *session.Session) (Credential, error) {
	if s.name == "" {
		return "", nil
	}
	return Credential(sess.TokenCookie), nil
}

// identityEndpoint queries the generic session/identity endpoint for the
// nested provider token; when that field is absent it tries the secondary
// generic token endpoint.
type identityEndpoint struct {
	url         string
	fallbackURL string
	client      *http.Client
}

func (s *identityEndpoint) Name() string { return "identity-endpoint" }

func (s *identityEndpoint) Resolve(ctx context.Context, sess *session.Session) (Credential, error) {
	if s.url != "" {
		var body struct {
			User struct {
				ProviderToken string `json:"provider_token"`
			} `json:"user"`
		}
		err := getJSON(ctx, s.client, s.url, sess.ID, &body)
		if err == nil && body.User.ProviderToken != "" {
			return Credential(body.User.ProviderToken), nil
		}
		// Fall through to the secondary endpoint on error or a
		// missing nested field.
	}
	if s.fallbackURL == "" {
		return "", nil
	}
	var fallback struct {
		Token string `json:"token"`
	}
	if err := getJSON(ctx, s.client, s.fallbackURL, sess.ID, &fallback); err != nil {
		return "", err
	}
	return Credential(fallback.Token), nil
}

// getJSON performs an authenticated GET against a first-party endpoint,
// identifying the caller's session via header.
func getJSON(ctx context.Context, client *http.Client, url, sessionID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Session-ID", sessionID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	return nil
}

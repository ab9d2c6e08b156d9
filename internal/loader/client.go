package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
)

// Client is the proxy stub a browser-equivalent consumer uses: it calls
// this service's own authenticated endpoints, identified by session
// cookie. It never sees the upstream credential.
type Client struct {
	base       string
	cookieName string
	sessionID  string
	http       *http.Client
}

// NewClient creates a stub against base (e.g. "http://127.0.0.1:8080")
// for one authenticated session.
func NewClient(base, cookieName, sessionID string) *Client {
	return &Client{
		base:       base,
		cookieName: cookieName,
		sessionID:  sessionID,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Caller = (*Client)(nil)

// ProcessByID fetches metadata through the proxy service.
func (c *Client) ProcessByID(ctx context.Context, id string) (*proxy.ProcessMetadata, error) {
	data, err := c.get(ctx, "/api/processes/"+id)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	var md proxy.ProcessMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &md, nil
}

// ProcessSVG fetches the rendered preview through the proxy service.
func (c *Client) ProcessSVG(ctx context.Context, id string) (string, error) {
	data, err := c.get(ctx, "/api/processes/"+id+"/svg")
	if err != nil {
		return "", err
	}
	var body struct {
		SVGContent string `json:"svg_content"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return "", fmt.Errorf("decode svg: %w", err)
	}
	return body.SVGContent, nil
}

// Call posts an arbitrary proxy call, mirroring the authenticated-request
// endpoint.
func (c *Client) Call(ctx context.Context, call proxy.Call) (json.RawMessage, error) {
	payload, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/proxy", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.sessionID})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.RawMessage(body), nil
}

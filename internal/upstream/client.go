// Package upstream is the outbound HTTP client for the external process
// metadata service. It is the only code that talks to that service; all
// calls carry the delegated bearer credential resolved server-side.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
)

// Process is the upstream's wire representation of one process document.
type Process struct {
	ProcessID     string    `json:"processId"`
	ProcessName   string    `json:"processName"`
	Desc          string    `json:"desc"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	IsPrivate     bool      `json:"isPrivate"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
}

// Client calls the upstream service. Timeouts are the transport's; no
// call is retried.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// UserProcesses fetches every process owned by the upstream account.
func (c *Client) UserProcesses(ctx context.Context, cred, accountID string) ([]Process, error) {
	data, err := c.get(ctx, cred, "user/processes/"+accountID)
	if err != nil {
		return nil, err
	}
	var out []Process
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &apperr.UpstreamError{Message: fmt.Sprintf("decode processes: %v", err)}
	}
	return out, nil
}

// ProcessByID fetches a single process document.
func (c *Client) ProcessByID(ctx context.Context, cred, id string) (*Process, error) {
	data, err := c.get(ctx, cred, "process/"+id)
	if err != nil {
		return nil, err
	}
	var out Process
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &apperr.UpstreamError{Message: fmt.Sprintf("decode process: %v", err)}
	}
	return &out, nil
}

// ProcessSVG fetches the preview variant of a process document.
func (c *Client) ProcessSVG(ctx context.Context, cred, id string) (*Process, error) {
	data, err := c.get(ctx, cred, "process/"+id+"/svg")
	if err != nil {
		return nil, err
	}
	var out Process
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &apperr.UpstreamError{Message: fmt.Sprintf("decode svg: %v", err)}
	}
	return &out, nil
}

// Forward relays an arbitrary endpoint call with caller params copied as
// extra headers. The response JSON is returned verbatim.
func (c *Client) Forward(ctx context.Context, cred, endpoint string, params map[string]string) (json.RawMessage, error) {
	return c.get(ctx, cred, strings.TrimPrefix(endpoint, "/"), withHeaders(params))
}

type reqOption func(*http.Request)

func withHeaders(params map[string]string) reqOption {
	return func(req *http.Request) {
		for k, v := range params {
			req.Header.Set(k, v)
		}
	}
}

func (c *Client) get(ctx context.Context, cred, path string, opts ...reqOption) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+path, nil)
	if err != nil {
		return nil, &apperr.UpstreamError{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error's message embeds the full request URL, whose path can
		// carry account identifiers; record only the transport cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, &apperr.UpstreamError{Message: fmt.Sprintf("transport %s: %v", uerr.Op, uerr.Err)}
		}
		return nil, &apperr.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.UpstreamError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.UpstreamError{Message: fmt.Sprintf("read body: %v", err)}
	}
	return json.RawMessage(body), nil
}

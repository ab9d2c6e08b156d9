package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func TestUserProcesses(t *testing.T) {
	var gotPath, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[
			{"processId":"p1","processName":"Etch","desc":"wet etch","isPrivate":false},
			{"processId":"p2","processName":"Dep","isPrivate":true}
		]`))
	})

	procs, err := c.UserProcesses(context.Background(), "tok", "acct-9")
	if err != nil {
		t.Fatalf("UserProcesses: %v", err)
	}
	if gotPath != "/user/processes/acct-9" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if len(procs) != 2 || procs[0].ProcessName != "Etch" || !procs[1].IsPrivate {
		t.Errorf("procs = %+v", procs)
	}
}

func TestProcessByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process/p1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"processId":"p1","processName":"Etch","lastUpdatedAt":"2026-01-02T03:04:05Z"}`))
	})

	p, err := c.ProcessByID(context.Background(), "tok", "p1")
	if err != nil {
		t.Fatalf("ProcessByID: %v", err)
	}
	if p.ProcessID != "p1" || p.LastUpdatedAt.IsZero() {
		t.Errorf("process = %+v", p)
	}
}

func TestProcessSVG(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process/p1/svg" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"processId":"p1","thumbnail":"<svg/>"}`))
	})

	p, err := c.ProcessSVG(context.Background(), "tok", "p1")
	if err != nil {
		t.Fatalf("ProcessSVG: %v", err)
	}
	if p.Thumbnail != "<svg/>" {
		t.Errorf("thumbnail = %q", p.Thumbnail)
	}
}

func TestForward_ParamsBecomeHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/some/endpoint" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Filter"); got != "recent" {
			t.Errorf("X-Filter = %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	})

	raw, err := c.Forward(context.Background(), "tok", "/some/endpoint", map[string]string{"X-Filter": "recent"})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestStatusErrorsCarryUpstreamCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ProcessByID(context.Background(), "tok", "missing")
	ue, ok := apperr.AsUpstream(err)
	if !ok {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("status = %d", ue.Status)
	}
}

func TestTransportErrorIsUpstreamError(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.UserProcesses(context.Background(), "tok", "acct-7")
	ue, ok := apperr.AsUpstream(err)
	if !ok {
		t.Fatalf("err = %v, want UpstreamError", err)
	}
	// Transport errors normally carry the request URL; the recorded
	// message must not, since the path names the upstream account.
	for _, needle := range []string{"acct-7", "user/processes"} {
		if strings.Contains(ue.Message, needle) {
			t.Errorf("transport message carries %q: %q", needle, ue.Message)
		}
	}
}

func TestDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{not json`))
	})
	if _, err := c.UserProcesses(context.Background(), "tok", "acct"); err == nil {
		t.Fatal("expected decode error")
	}
}

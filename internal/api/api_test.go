package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacksnnn/fabublox-process-selector/internal/field"
	"github.com/jacksnnn/fabublox-process-selector/internal/notify"
	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
	"github.com/jacksnnn/fabublox-process-selector/internal/session"
	"github.com/jacksnnn/fabublox-process-selector/internal/store"
	"github.com/jacksnnn/fabublox-process-selector/internal/testutil"
	"github.com/jacksnnn/fabublox-process-selector/internal/token"
	"github.com/jacksnnn/fabublox-process-selector/internal/topicservice"
	"github.com/jacksnnn/fabublox-process-selector/internal/upstream"
)

const validID = "3da54e19-224a-4a63-8714-7ef9e524e9c5"

// env is a fully wired API over a seeded sqlite store and a fake
// upstream that counts every request reaching it.
type env struct {
	srv          *httptest.Server
	db           *store.DB
	upstreamHits *atomic.Int64
}

func newEnv(t *testing.T, upstreamHandler http.HandlerFunc) *env {
	t.Helper()

	var hits atomic.Int64
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if upstreamHandler != nil {
			upstreamHandler(w, r)
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(up.Close)

	db := testutil.TestStore(t)
	logger := testutil.Logger()

	resolver := token.NewResolver(token.DefaultStrategies(token.Options{
		CookieName: "provider_token",
	}), false, logger)
	proxySvc := proxy.NewService(resolver, upstream.New(up.URL, 5*time.Second), logger)

	reg := field.NewRegistry(field.Config{PrimaryName: "process_id", PreviewName: "process_svg"})
	broker := notify.NewBroker()
	t.Cleanup(broker.Close)
	topics := topicservice.NewService(db, reg, broker, logger)

	srv := httptest.NewServer(NewRouter(NewHandler(proxySvc, topics), db, broker))
	t.Cleanup(srv.Close)

	return &env{srv: srv, db: db, upstreamHits: &hits}
}

// seed creates a signed-in user; tokenCookie empty means the user has no
// credential source at all.
func (e *env) seed(t *testing.T, tokenCookie string) *session.Session {
	t.Helper()
	return testutil.SeedSession(t, e.db, session.User{
		ID:                "u1",
		Username:          "maker",
		UpstreamAccountID: "acct-1",
	}, tokenCookie, "")
}

func (e *env) request(t *testing.T, method, path, body string, sess *session.Session) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestNoCookieRejected(t *testing.T) {
	e := newEnv(t, nil)

	for _, path := range []string{"/token", "/processes", "/topics/t1/fields"} {
		resp := e.request(t, "GET", path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, resp.StatusCode)
		}
	}
	if n := e.upstreamHits.Load(); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	e := newEnv(t, nil)
	ghost := &session.Session{ID: "no-such-session"}
	resp := e.request(t, "GET", "/token", "", ghost)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestToken(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "GET", "/token", "", sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, `"token":"cookie-cred"`) {
		t.Errorf("body = %s", body)
	}
}

func TestToken_NoSourcesIs404AndNeverForwarded(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "")

	resp := e.request(t, "GET", "/token", "", sess)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, "no token found for user") {
		t.Errorf("body = %s", body)
	}
	if n := e.upstreamHits.Load(); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestProcessesSequenceWithoutCredential(t *testing.T) {
	// A user with no credential source gets 401s from every proxied
	// endpoint and nothing ever reaches the upstream.
	e := newEnv(t, nil)
	sess := e.seed(t, "")

	for _, path := range []string{"/processes", "/processes/" + validID, "/processes/" + validID + "/svg"} {
		resp := e.request(t, "GET", path, "", sess)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, resp.StatusCode)
		}
	}
	if n := e.upstreamHits.Load(); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestUserProcesses(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/processes/acct-1" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer cookie-cred" {
			t.Errorf("upstream auth = %q", got)
		}
		w.Write([]byte(`[
			{"processId":"old","processName":"Old","lastUpdatedAt":"2026-01-01T00:00:00Z"},
			{"processId":"new","processName":"New","lastUpdatedAt":"2026-06-01T00:00:00Z"}
		]`))
	})
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "GET", "/processes", "", sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if strings.Index(body, `"new"`) > strings.Index(body, `"old"`) {
		t.Errorf("processes not most-recent-first: %s", body)
	}
	for _, secret := range []string{"cookie-cred", "acct-1"} {
		if strings.Contains(body, secret) {
			t.Errorf("response leaks %q: %s", secret, body)
		}
	}
}

func TestProcessByID_InvalidReference(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "GET", "/processes/not-a-reference", "", sess)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if n := e.upstreamHits.Load(); n != 0 {
		t.Errorf("upstream saw %d requests, want 0", n)
	}
}

func TestProcessByID_CanonicalizesBeforeForwarding(t *testing.T) {
	var gotPath string
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"processId":"` + validID + `","processName":"Etch"}`))
	})
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "GET", "/processes/"+strings.ToUpper(validID), "", sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if gotPath != "/process/"+validID {
		t.Errorf("upstream path = %q, want lowercased id", gotPath)
	}
}

func TestProcessSVG_Placeholder(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"processId":"` + validID + `"}`))
	})
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "GET", "/processes/"+validID+"/svg", "", sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "svg_content") || !strings.Contains(body, "3da54e19") {
		t.Errorf("body = %s", body)
	}
}

func TestProxyPassthrough(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/custom/thing" {
			t.Errorf("upstream path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Filter"); got != "recent" {
			t.Errorf("X-Filter = %q", got)
		}
		w.Write([]byte(`{"anything":"goes"}`))
	})
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "POST", "/proxy",
		`{"endpoint":"/custom/thing","params":{"X-Filter":"recent"}}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, `"anything":"goes"`) {
		t.Errorf("body = %s", body)
	}
}

func TestProxy_MissingEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "POST", "/proxy", `{"params":{}}`, sess)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestProxy_UpstreamFailureSanitized(t *testing.T) {
	e := newEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "secret internal detail", http.StatusServiceUnavailable)
	})
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "POST", "/proxy", `{"endpoint":"/x"}`, sess)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	body := readBody(t, resp)
	if strings.Contains(body, "secret internal detail") || strings.Contains(body, "503") {
		t.Errorf("response leaks upstream detail: %s", body)
	}
}

func TestTopicFieldsLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	// Compose a topic with a pasted editor URL.
	resp := e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"composer","raw_input":"https://www.fabublox.com/process-editor/`+validID+`","preview":"<svg/>"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d: %s", resp.StatusCode, readBody(t, resp))
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `"reference":"`+validID+`"`) {
		t.Errorf("commit body = %s", body)
	}
	if !strings.Contains(body, `"editor_url":"https://www.fabublox.com/process-editor/`+validID+`"`) {
		t.Errorf("editor_url missing: %s", body)
	}

	// Read it back.
	resp = e.request(t, "GET", "/topics/t1/fields", "", sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	body = readBody(t, resp)
	if !strings.Contains(body, validID) {
		t.Errorf("read body = %s", body)
	}
	if !strings.Contains(body, `"preview":"<svg/>"`) {
		t.Errorf("preview missing from read body = %s", body)
	}

	// A reply inherits through parent_id without touching either track.
	resp = e.request(t, "PUT", "/topics/t2/fields",
		`{"surface":"composer","parent_id":"t1"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("inherit status = %d", resp.StatusCode)
	}
	if body = readBody(t, resp); !strings.Contains(body, validID) {
		t.Errorf("inherit body = %s", body)
	}
}

func TestTopicFields_ComposerDiscardsInvalid(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"composer","raw_input":"garbage"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if strings.Contains(body, `"reference"`) {
		t.Errorf("discarded input still present: %s", body)
	}
	if !strings.Contains(body, `"valid":false`) {
		t.Errorf("validation cue missing: %s", body)
	}
}

func TestTopicFields_CommitCarriesValidationCue(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	// Valid input: cue is positive, no raw echo.
	resp := e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"composer","raw_input":"`+validID+`"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `"valid":true`) {
		t.Errorf("body = %s", body)
	}
	if strings.Contains(body, `"raw_input"`) {
		t.Errorf("valid commit should not echo raw input: %s", body)
	}

	// Invalid input on the preserving surface: cue plus the raw text
	// for redisplay.
	resp = e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"title-edit","raw_input":"garbage"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body = readBody(t, resp)
	if !strings.Contains(body, `"valid":false`) || !strings.Contains(body, `"raw_input":"garbage"`) {
		t.Errorf("body = %s", body)
	}

	// Untouched commits and reads carry no cue at all.
	resp = e.request(t, "PUT", "/topics/t1/fields", `{"surface":"composer"}`, sess)
	if body = readBody(t, resp); strings.Contains(body, `"valid"`) {
		t.Errorf("untouched commit has cue: %s", body)
	}
	resp = e.request(t, "GET", "/topics/t1/fields", "", sess)
	if body = readBody(t, resp); strings.Contains(body, `"valid"`) {
		t.Errorf("read has cue: %s", body)
	}
}

func TestTopicFields_TitleEditPreservesInvalid(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"composer","raw_input":"`+validID+`"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed status = %d", resp.StatusCode)
	}
	readBody(t, resp)

	resp = e.request(t, "PUT", "/topics/t1/fields",
		`{"surface":"title-edit","raw_input":"garbage"}`, sess)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body := readBody(t, resp); !strings.Contains(body, validID) {
		t.Errorf("previous value lost: %s", body)
	}
}

func TestTopicFields_UnknownSurface(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	resp := e.request(t, "PUT", "/topics/t1/fields", `{"surface":"sidebar"}`, sess)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommitPublishesEvent(t *testing.T) {
	e := newEnv(t, nil)
	sess := e.seed(t, "cookie-cred")

	// Subscribe to the event stream, then commit.
	req, err := http.NewRequest("GET", e.srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d", resp.StatusCode)
	}

	// The stream handler subscribes after writing headers; give it a
	// moment before committing so the event is not published first.
	time.Sleep(100 * time.Millisecond)

	commit := e.request(t, "PUT", "/topics/t9/fields",
		`{"surface":"composer","raw_input":"`+validID+`"}`, sess)
	if commit.StatusCode != http.StatusOK {
		t.Fatalf("commit status = %d", commit.StatusCode)
	}

	buf := make([]byte, 4096)
	deadline := time.Now().Add(5 * time.Second)
	var got string
	for !strings.Contains(got, "t9") {
		if time.Now().After(deadline) {
			t.Fatalf("no event received, got %q", got)
		}
		n, err := resp.Body.Read(buf)
		got += string(buf[:n])
		if err != nil {
			break
		}
	}
	if !strings.Contains(got, "field.committed") || !strings.Contains(got, `"doc_id":"t9"`) {
		t.Errorf("event = %q", got)
	}
}

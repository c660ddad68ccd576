package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"homeworks/internal/config"
	"homeworks/internal/db"
	"homeworks/internal/domain"
	"homeworks/internal/engine"
	"homeworks/internal/metrics"
	"homeworks/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger, _ := test.NewNullLogger()
	e := engine.New(conn, config.Default())
	e.Logger = logger
	e.Metrics = metrics.New()
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret, AllowUserHeader: true, Logger: logger},
		Metrics:  e.Metrics.Handler(),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func as(userID string) map[string]string {
	return map[string]string{"X-User-Id": userID}
}

func bearer(t *testing.T, userID string, roles ...string) map[string]string {
	t.Helper()
	token, err := SignToken(testSecret, userID, roles, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func expectStatus(t *testing.T, res *http.Response, data []byte, want int) {
	t.Helper()
	if res.StatusCode != want {
		t.Fatalf("status %d, want %d: %s", res.StatusCode, want, string(data))
	}
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope: %v: %s", err, string(data))
	}
	return env.Error.Code
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode: %v: %s", err, string(data))
	}
	return v
}

func TestHealthAndAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, nil)
	expectStatus(t, res, data, http.StatusUnauthorized)
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("code = %s", code)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"Authorization": "Bearer nope"})
	expectStatus(t, res, data, http.StatusUnauthorized)

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, bearer(t, "u1"))
	expectStatus(t, res, data, http.StatusOK)
	if me := decode[engine.Profiles](t, data); me.UserID != "u1" {
		t.Fatalf("me = %+v", me)
	}
}

func TestNegotiationOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := srv.Client()
	base := srv.URL + "/v0"

	res, data := doJSON(t, c, http.MethodPost, base+"/homeowners", map[string]any{"name": "Hana"}, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	res, data = doJSON(t, c, http.MethodPost, base+"/designers", map[string]any{"name": "Dana"}, as("designer"))
	expectStatus(t, res, data, http.StatusCreated)
	designer := decode[domain.Designer](t, data)

	res, data = doJSON(t, c, http.MethodPost, base+"/designers/"+designer.ID+"/verification", map[string]any{"verified": true}, bearer(t, "designer"))
	expectStatus(t, res, data, http.StatusForbidden)
	res, data = doJSON(t, c, http.MethodPost, base+"/designers/"+designer.ID+"/verification", map[string]any{"verified": true}, bearer(t, "ops", RoleAdmin))
	expectStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, c, http.MethodPost, base+"/projects", map[string]any{"scope_type": "partial"}, as("owner"))
	expectStatus(t, res, data, http.StatusBadRequest)

	res, data = doJSON(t, c, http.MethodPost, base+"/projects", map[string]any{
		"title":      "Bathroom",
		"scope_type": "partial",
		"budget_min": 5000,
		"budget_max": 9000,
	}, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	project := decode[domain.Project](t, data)
	if project.Status != domain.ProjectDraft {
		t.Fatalf("project status = %s", project.Status)
	}

	send := map[string]any{"designer_id": designer.ID}
	res, data = doJSON(t, c, http.MethodPost, base+"/projects/"+project.ID+"/requests", send, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	rq := decode[domain.Request](t, data)
	res, data = doJSON(t, c, http.MethodPost, base+"/projects/"+project.ID+"/requests", send, as("owner"))
	expectStatus(t, res, data, http.StatusConflict)
	if code := errorCode(t, data); code != "conflict" {
		t.Fatalf("duplicate send code = %s", code)
	}

	res, data = doJSON(t, c, http.MethodPatch, base+"/projects/"+project.ID, map[string]any{"title": "Late edit"}, as("owner"))
	expectStatus(t, res, data, http.StatusConflict)
	if code := errorCode(t, data); code != "invalid_state" {
		t.Fatalf("update code = %s", code)
	}

	res, data = doJSON(t, c, http.MethodGet, base+"/requests?status=pending", nil, as("designer"))
	expectStatus(t, res, data, http.StatusOK)
	if inbox := decode[[]domain.Request](t, data); len(inbox) != 1 {
		t.Fatalf("inbox = %v", inbox)
	}

	res, data = doJSON(t, c, http.MethodPost, base+"/requests/"+rq.ID+"/proposal", map[string]any{
		"scope":          "tile and fixtures",
		"timeline_weeks": 3,
		"cost_estimate":  8000,
	}, as("designer"))
	expectStatus(t, res, data, http.StatusCreated)
	proposal := decode[domain.Proposal](t, data)

	res, data = doJSON(t, c, http.MethodPost, base+"/proposals/"+proposal.ID+"/accept", nil, as("designer"))
	expectStatus(t, res, data, http.StatusForbidden)
	res, data = doJSON(t, c, http.MethodPost, base+"/proposals/"+proposal.ID+"/accept", nil, as("owner"))
	expectStatus(t, res, data, http.StatusOK)
	accepted := decode[engine.AcceptResult](t, data)
	if accepted.Project.Status != domain.ProjectInProgress {
		t.Fatalf("project after accept = %s", accepted.Project.Status)
	}

	res, data = doJSON(t, c, http.MethodPost, base+"/projects/"+project.ID+"/tasks", map[string]any{"title": "Demo"}, as("designer"))
	expectStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, c, http.MethodGet, base+"/projects/"+project.ID+"/activity?limit=2", nil, as("owner"))
	expectStatus(t, res, data, http.StatusOK)
	page := decode[engine.ActivityResult](t, data)
	if len(page.Entries) != 2 || page.Next == 0 || page.Entries[0].Action != "task_created" {
		t.Fatalf("activity page = %+v", page)
	}
}

func TestNotFoundAndValidationMapping(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := srv.Client()
	base := srv.URL + "/v0"

	res, data := doJSON(t, c, http.MethodGet, base+"/projects/missing", nil, as("owner"))
	expectStatus(t, res, data, http.StatusNotFound)
	if code := errorCode(t, data); code != "not_found" {
		t.Fatalf("code = %s", code)
	}

	res, data = doJSON(t, c, http.MethodPost, base+"/homeowners", map[string]any{"name": "Hana"}, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	res, data = doJSON(t, c, http.MethodGet, base+"/projects?status=paused", nil, as("owner"))
	expectStatus(t, res, data, http.StatusBadRequest)
	if code := errorCode(t, data); code != "validation_failed" {
		t.Fatalf("code = %s", code)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := srv.Client()
	base := srv.URL + "/v0"

	res, data := doJSON(t, c, http.MethodPost, base+"/api-keys", map[string]any{"name": "cli"}, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	created := decode[CreatedAPIKeyResponse](t, data)
	if !strings.HasPrefix(created.Secret, "hw_") {
		t.Fatalf("secret = %q", created.Secret)
	}

	res, data = doJSON(t, c, http.MethodGet, base+"/me", nil, map[string]string{"X-Api-Key": created.Secret})
	expectStatus(t, res, data, http.StatusOK)
	if me := decode[engine.Profiles](t, data); me.UserID != "owner" {
		t.Fatalf("me = %+v", me)
	}

	res, data = doJSON(t, c, http.MethodDelete, base+"/api-keys/"+created.Key.ID, nil, as("owner"))
	expectStatus(t, res, data, http.StatusNoContent)
	res, data = doJSON(t, c, http.MethodGet, base+"/me", nil, map[string]string{"X-Api-Key": created.Secret})
	expectStatus(t, res, data, http.StatusUnauthorized)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := srv.Client()

	res, data := doJSON(t, c, http.MethodPost, srv.URL+"/v0/homeowners", map[string]any{"name": "Hana"}, as("owner"))
	expectStatus(t, res, data, http.StatusCreated)
	res, data = doJSON(t, c, http.MethodGet, srv.URL+"/metrics", nil, nil)
	expectStatus(t, res, data, http.StatusOK)
	if !strings.Contains(string(data), "homeworks_operation_duration_seconds") {
		t.Fatalf("metrics output missing operation histogram")
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	logger, hook := test.NewNullLogger()
	ctx := context.WithValue(context.Background(), loggerKey{}, logrus.FieldLogger(logger))

	se := handleError(ctx, errors.New("exec: sqlite: disk I/O error"))
	if se.GetStatus() != http.StatusInternalServerError {
		t.Fatalf("status = %d", se.GetStatus())
	}
	body, err := json.Marshal(se)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "sqlite") {
		t.Fatalf("response leaks cause: %s", body)
	}
	if !strings.Contains(string(body), `"internal_error"`) {
		t.Fatalf("unexpected body: %s", body)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("internal error not logged: %v", hook.AllEntries())
	}
	if cause, _ := entry.Data[logrus.ErrorKey].(error); cause == nil || !strings.Contains(cause.Error(), "disk I/O") {
		t.Fatalf("logged entry = %+v", entry.Data)
	}
}

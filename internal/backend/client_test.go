package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

type recordedRequest struct {
	method string
	path   string
	token  string
	reqID  string
	body   []byte
}

// testServer captures requests and replays canned responses per path.
type testServer struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]response
	srv       *httptest.Server
}

type response struct {
	status int
	body   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{responses: make(map[string]response)}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			token:  r.Header.Get("x-auth-token"),
			reqID:  r.Header.Get("X-Request-ID"),
			body:   body,
		})
		resp, ok := ts.responses[r.Method+" "+r.URL.Path]
		ts.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) on(method, path string, status int, body string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.responses[method+" "+path] = response{status: status, body: body}
}

func (ts *testServer) last(t *testing.T) recordedRequest {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.requests)
	return ts.requests[len(ts.requests)-1]
}

func (ts *testServer) count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.requests)
}

func TestCheckClientFound(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodGet, "/api/clients/+593991234567", http.StatusOK,
		`{"_id":"c1","phone":"+593991234567","name":"Juan Pérez"}`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	client, err := c.CheckClient(context.Background(), "+593991234567")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "c1", client.ID)
	assert.Equal(t, "Juan Pérez", client.Name)
}

func TestCheckClientNotFoundIsNotAnError(t *testing.T) {
	ts := newTestServer(t)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	client, err := c.CheckClient(context.Background(), "+593990000000")
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestRequestHeaders(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodGet, "/api/services", http.StatusOK, `[]`)

	// Without a token the auth header is omitted entirely.
	c := NewClient(ts.srv.URL+"/api", staticTokens(""), time.Second)
	_, err := c.ListServices(context.Background())
	require.NoError(t, err)
	req := ts.last(t)
	assert.Empty(t, req.token)
	assert.NotEmpty(t, req.reqID, "every request carries a request id")

	c = NewClient(ts.srv.URL+"/api", staticTokens("tok-123"), time.Second)
	_, err = c.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", ts.last(t).token)
}

func TestCreateClientPostsBody(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodPost, "/api/clients", http.StatusCreated,
		`{"_id":"c2","phone":"+593990000000","name":"María"}`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	client, err := c.CreateClient(context.Background(), "+593990000000", "María")
	require.NoError(t, err)
	assert.Equal(t, "c2", client.ID)

	var body map[string]string
	require.NoError(t, json.Unmarshal(ts.last(t).body, &body))
	assert.Equal(t, "+593990000000", body["phone"])
	assert.Equal(t, "María", body["name"])
}

func TestAvailableSlotsPathUsesDate(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodGet, "/api/appointments/available-slots/2026-09-01", http.StatusOK,
		`["09:00","10:00"]`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	slots, err := c.AvailableSlots(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, slots)
}

func TestCreateAppointment(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodPost, "/api/appointments", http.StatusCreated,
		`{"_id":"a1","phone":"+593991234567","date":"2026-09-01","time":"10:00"}`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	appt, err := c.CreateAppointment(context.Background(), AppointmentRequest{
		Phone:    "+593991234567",
		Name:     "Juan Pérez",
		Services: []string{"s1", "s2"},
		Date:     "2026-09-01",
		Time:     "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", appt.ID)

	var body AppointmentRequest
	require.NoError(t, json.Unmarshal(ts.last(t).body, &body))
	assert.Equal(t, []string{"s1", "s2"}, body.Services)
}

func TestAdminLoginReturnsToken(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodPost, "/api/admin/login", http.StatusOK, `{"token":"tok-xyz"}`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	token, err := c.AdminLogin(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", token)
}

func TestAdminLoginRejection(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodPost, "/api/admin/login", http.StatusUnauthorized, `{}`)

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	_, err := c.AdminLogin(context.Background(), "admin", "wrong")
	assert.Error(t, err)
}

func TestCancelAppointment(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodDelete, "/api/admin/appointments/a1", http.StatusOK, `{}`)

	c := NewClient(ts.srv.URL+"/api", staticTokens("tok"), time.Second)
	require.NoError(t, c.CancelAppointment(context.Background(), "a1"))
	req := ts.last(t)
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, "tok", req.token)
}

func TestServicesCacheReadThrough(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodGet, "/api/services", http.StatusOK,
		`[{"_id":"s1","name":"Corte","price":25,"duration":"30 m"}]`)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c := NewClient(ts.srv.URL+"/api", nil, time.Second)
	c.UseRedisCache(rdb, time.Minute)

	first, err := c.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, ts.count())

	// Second read is served from the cache.
	second, err := c.ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, ts.count())
}

func TestCatalogWritesInvalidateCache(t *testing.T) {
	ts := newTestServer(t)
	ts.on(http.MethodGet, "/api/services", http.StatusOK, `[]`)
	ts.on(http.MethodPost, "/api/admin/services", http.StatusCreated,
		`{"_id":"s9","name":"Tinte","price":30,"duration":"45 m"}`)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c := NewClient(ts.srv.URL+"/api", staticTokens("tok"), time.Second)
	c.UseRedisCache(rdb, time.Minute)

	_, err := c.ListServices(context.Background())
	require.NoError(t, err)
	require.True(t, mr.Exists("services"))

	svc, err := c.AddService(context.Background(), "Tinte", 30, "45 m")
	require.NoError(t, err)
	assert.Equal(t, "s9", svc.ID)
	assert.False(t, mr.Exists("services"), "catalog write must drop the cached list")
}

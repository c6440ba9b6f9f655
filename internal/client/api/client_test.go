package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"rollcall-service/internal/client/config"
	"rollcall-service/internal/client/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client      *Client
	tokens      *storage.Memory
	reauthTo    []string
	reauthCause []*Error
	lastReq     *http.Request
	lastBody    map[string]any
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{tokens: storage.NewMemory()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastReq = r
		f.lastBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{BaseURL: srv.URL, APIVersion: "v1", Timeout: time.Second, LoginPath: "/login"}
	f.client = New(cfg, f.tokens, WithUnauthorizedHandler(func(_ context.Context, loginURL string, cause *Error) {
		f.reauthTo = append(f.reauthTo, loginURL)
		f.reauthCause = append(f.reauthCause, cause)
	}))
	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSuccessAttachesBearer(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "rid")
		writeJSON(w, http.StatusOK, `{"success":true,"message":"ok","data":{"id":3,"title":"Run"}}`)
	})
	require.NoError(t, f.tokens.Set(storage.TokenKey, "T"))

	res := f.client.Get(context.Background(), "/events/3", WithQuery(url.Values{"limit": {"5"}}))

	require.True(t, res.Success)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "rid", res.Headers.Get("X-Request-ID"))
	assert.Equal(t, "Bearer T", f.lastReq.Header.Get("Authorization"))
	assert.Equal(t, "/api/v1/events/3", f.lastReq.URL.Path)
	assert.Equal(t, "5", f.lastReq.URL.Query().Get("limit"))

	var ev struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	require.NoError(t, res.Decode(&ev))
	assert.Equal(t, int64(3), ev.ID)
}

func TestNoTokenNoHeader(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id":1}`)
	})

	res := f.client.Post(context.Background(), "auth/register", map[string]string{"username": "ada"})

	require.True(t, res.Success)
	assert.Empty(t, f.lastReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", f.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, "ada", f.lastBody["username"])

	var plain struct{ ID int64 }
	require.NoError(t, res.Decode(&plain))
	assert.Equal(t, int64(1), plain.ID)
}

func TestUnauthorizedPurgesAndReauthenticates(t *testing.T) {
	calls := map[string]func(c *Client) Result{
		http.MethodGet:    func(c *Client) Result { return c.Get(context.Background(), "/checkins/1") },
		http.MethodPost:   func(c *Client) Result { return c.Post(context.Background(), "/checkins", map[string]int{"event_id": 1}) },
		http.MethodPut:    func(c *Client) Result { return c.Put(context.Background(), "/users/1", map[string]string{"bio": "x"}) },
		http.MethodPatch:  func(c *Client) Result { return c.Patch(context.Background(), "/events/1", map[string]string{"title": "x"}) },
		http.MethodDelete: func(c *Client) Result { return c.Delete(context.Background(), "/checkins/1") },
	}

	for method, call := range calls {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"invalid token","code":"UNAUTHORIZED"}`)
			})
			require.NoError(t, f.tokens.Set(storage.TokenKey, "T"))

			res := call(f.client)

			assert.Equal(t, method, f.lastReq.Method)
			assert.False(t, res.Success)
			assert.True(t, res.RequiresReauth)
			require.NotNil(t, res.Error)
			assert.Equal(t, http.StatusUnauthorized, res.Error.Status)
			assert.Equal(t, "invalid token", res.Error.Message)

			_, ok := f.tokens.Get(storage.TokenKey)
			assert.False(t, ok)
			require.Len(t, f.reauthTo, 1)
			assert.Contains(t, f.reauthTo[0], "/login")
			require.NotNil(t, f.reauthCause[0])
			assert.Equal(t, "UNAUTHORIZED", f.reauthCause[0].Code)
		})
	}
}

func TestUnauthorizedWithoutBodyUsesDefault(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	res := f.client.Get(context.Background(), "/auth/me")
	assert.Equal(t, msgReauth, res.Error.Message)
	assert.Len(t, f.reauthTo, 1)
}

func TestErrorMessagePrecedence(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{"message wins", http.StatusConflict, `{"message":"already checked in today","detail":"x","code":"ALREADY_CHECKED_IN"}`, "already checked in today", "ALREADY_CHECKED_IN"},
		{"detail string", http.StatusBadRequest, `{"detail":"Event not found"}`, "Event not found", ""},
		{"detail list ignored", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"],"msg":"bad"}]}`, "Request failed with status 422", ""},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Request failed with status 502", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			res := f.client.Put(context.Background(), "/events/1", map[string]string{"title": "x"})

			assert.False(t, res.Success)
			assert.False(t, res.RequiresReauth)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.message, res.Error.Message)
			assert.Equal(t, tt.code, res.Error.Code)
			assert.Empty(t, f.reauthTo)
			assert.Error(t, res.Decode(&struct{}{}))
		})
	}
}

func TestNetworkError(t *testing.T) {
	cfg := &config.Config{BaseURL: "http://127.0.0.1:1", APIVersion: "v1", Timeout: time.Second}
	c := New(cfg, storage.NewMemory())

	res := c.Patch(context.Background(), "/users/1", map[string]string{"bio": "x"})

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, msgNetwork, res.Error.Message)
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.client.Get(ctx, "/events")

	assert.False(t, res.Success)
	assert.Equal(t, msgCancelled, res.Error.Message)
}

func TestUnencodableBody(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})

	res := f.client.Post(context.Background(), "/events", map[string]any{"bad": make(chan int)})

	assert.False(t, res.Success)
	assert.Equal(t, msgUnknown, res.Error.Message)
}

func TestTimeoutComesFromConfig(t *testing.T) {
	cfg := &config.Config{BaseURL: "http://localhost", Timeout: 3 * time.Second}
	c := New(cfg, nil, WithHTTPClient(&http.Client{Timeout: time.Hour}))
	assert.Equal(t, 3*time.Second, c.http.Timeout)
}

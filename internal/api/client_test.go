package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patas/internal/session"
	"patas/internal/session/store"
	dErrors "patas/pkg/domain-errors"
)

// stubAuthAPI lets pipeline tests control the refresh endpoint without a
// second test server.
type stubAuthAPI struct {
	refreshed atomic.Int32
	pair      *session.TokenPair
	err       error
}

func (s *stubAuthAPI) Login(context.Context, session.LoginRequest) (*session.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubAuthAPI) Refresh(context.Context, string) (*session.TokenPair, error) {
	s.refreshed.Add(1)
	return s.pair, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authenticatedManager(t *testing.T, authAPI session.AuthAPI, pair session.TokenPair) *session.Manager {
	t.Helper()
	st := store.NewInMemoryStore()
	require.NoError(t, st.Save(pair))
	return session.NewManager(st, authAPI, discardLogger())
}

func freshPair() session.TokenPair {
	return session.TokenPair{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		AccessExpiresAt:  time.Now().Add(10 * time.Minute),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

// renewingAuthAPI returns a stub whose Refresh hands out a fresh pair with a
// rotated access token, as a real backend would.
func renewingAuthAPI() *stubAuthAPI {
	renewed := freshPair()
	renewed.AccessToken = "access-2"
	renewed.RefreshToken = "refresh-2"
	return &stubAuthAPI{pair: &renewed}
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Bearer access-1", gotAuth)
}

func TestClient_AnonymousSessionAbortsBeforeDispatch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	st := store.NewInMemoryStore()
	mgr := session.NewManager(st, &stubAuthAPI{}, discardLogger())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthenticated))
	assert.Equal(t, int32(0), hits.Load(), "request must not be sent without a usable credential")
}

func TestClient_RetriesOnceAfter401(t *testing.T) {
	// The token looks fresh locally but the server rejects it, so the retry
	// must follow a forced refresh rather than replaying the same credential.
	var attempts atomic.Int32
	var retryAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		retryAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	authAPI := renewingAuthAPI()
	mgr := authenticatedManager(t, authAPI, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, "Bearer access-2", retryAuth)
	assert.Equal(t, int32(1), authAPI.refreshed.Load())
}

func TestClient_SecondUnauthorizedForcesLogout(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token revoked"}`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, renewingAuthAPI(), freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSessionExpired))
	assert.Equal(t, 401, dErrors.StatusOf(err))
	assert.Equal(t, "token revoked", err.Error())
	assert.Equal(t, int32(2), attempts.Load(), "strictly one retry")
	assert.False(t, mgr.IsAuthenticated(), "second 401 invalidates the session")
}

func TestClient_UpstreamErrorIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))
	assert.Equal(t, 500, dErrors.StatusOf(err))
	assert.Equal(t, "boom", err.Error())
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, 20*time.Millisecond, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v1/pets"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
}

func TestClient_RetryReplaysBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, renewingAuthAPI(), freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/v1/pets",
		JSON:   map[string]string{"nome": "Rex"},
	})
	require.NoError(t, err)
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"nome":"Rex"}`, bodies[0])
	assert.Equal(t, bodies[0], bodies[1], "retried request must be byte-identical")
}

func TestClient_GetPageSendsPaginationParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))
		assert.Equal(t, "rex", r.URL.Query().Get("nome"))
		_, _ = w.Write([]byte(`{"items":[{"id":"1"}],"total":1}`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	page, err := c.GetPage(context.Background(), "/v1/pets", PageRequest{Page: 3, Size: 10, Query: "rex"}, "nome")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.JSONEq(t, `{"id":"1"}`, string(page.Items[0]))
}

func TestClient_GetJSONDecodeFailureIsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	mgr := authenticatedManager(t, &stubAuthAPI{}, freshPair())
	c := NewClient(srv.URL, time.Second, mgr, discardLogger())

	var out map[string]any
	err := c.GetJSON(context.Background(), "/v1/pets/1", nil, &out)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedResponse))
}

func TestClient_ExpiredAccessRefreshesBeforeDispatch(t *testing.T) {
	// The session's access token is already past expiry; the pipeline's
	// credential check triggers exactly one refresh before the request goes out.
	renewed := freshPair()
	renewed.AccessToken = "access-2"
	authAPI := &stubAuthAPI{pair: &renewed}

	expired := freshPair()
	expired.AccessExpiresAt = time.Now().Add(-time.Minute)
	mgr := authenticatedManager(t, authAPI, expired)

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, mgr, discardLogger())
	var out json.RawMessage
	require.NoError(t, c.GetJSON(context.Background(), "/v1/pets", nil, &out))

	assert.Equal(t, "Bearer access-2", gotAuth)
	assert.Equal(t, int32(1), authAPI.refreshed.Load())
}

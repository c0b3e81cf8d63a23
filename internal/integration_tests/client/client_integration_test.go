package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patas/internal/api"
	"patas/internal/devserver"
	"patas/internal/listview"
	"patas/internal/pets"
	"patas/internal/platform/config"
	"patas/internal/platform/metrics"
	"patas/internal/session"
	"patas/internal/session/store"
	domainErrors "patas/pkg/domain-errors"
)

const signingKey = "integration-test-key"

type stack struct {
	server  *httptest.Server
	store   *devserver.Store
	tokens  *devserver.TokenService
	creds   *store.InMemoryStore
	session *session.Manager
	client  *api.Client
	pets    *pets.Service
}

// newStack runs the real demo backend behind httptest and wires the full
// client core against it: auth client, session manager, pipeline, services.
func newStack(t *testing.T, accessTTL time.Duration, opts ...session.Option) *stack {
	t.Helper()

	cfg := config.Server{
		JWTSigningKey: signingKey,
		AccessTTL:     accessTTL,
		RefreshTTL:    24 * time.Hour,
		DemoUser:      "admin",
		DemoPassword:  "secret",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	catalog := devserver.NewStore()
	catalog.Seed()

	tokens := devserver.NewTokenService(cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	handler, err := devserver.NewHandler(cfg, catalog, tokens, logger, metrics.New(registry))
	require.NoError(t, err)

	srv := httptest.NewServer(devserver.NewRouter(handler, logger, registry))
	t.Cleanup(srv.Close)

	creds := store.NewInMemoryStore()
	authClient := api.NewAuthClient(srv.URL, 5*time.Second)
	manager := session.NewManager(creds, authClient, logger, opts...)
	client := api.NewClient(srv.URL, 5*time.Second, manager, logger)

	return &stack{
		server:  srv,
		store:   catalog,
		tokens:  tokens,
		creds:   creds,
		session: manager,
		client:  client,
		pets:    pets.NewService(client, logger),
	}
}

func (s *stack) login(t *testing.T) {
	t.Helper()
	require.NoError(t, s.session.Login(context.Background(), session.LoginRequest{
		Username: "admin",
		Password: "secret",
	}))
}

func TestLoginThenList(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	s.login(t)

	assert.True(t, s.session.IsAuthenticated())

	// Credentials were written through to the store.
	saved, err := s.creds.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.NotEmpty(t, saved.AccessToken)

	page, err := s.pets.List(context.Background(), api.PageRequest{Page: 0, Size: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Len(t, page.Items, 4)
}

func TestInvalidCredentialsRejected(t *testing.T) {
	s := newStack(t, 15*time.Minute)

	err := s.session.Login(context.Background(), session.LoginRequest{
		Username: "admin",
		Password: "wrong",
	})

	require.Error(t, err)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeInvalidCredentials))
	assert.False(t, s.session.IsAuthenticated())
}

func TestSilentRefreshOnExpiredAccessToken(t *testing.T) {
	// Access tokens live one second; the refresh token stays valid.
	s := newStack(t, time.Second)
	s.login(t)

	before := s.session.Snapshot().Tokens.AccessToken
	time.Sleep(1100 * time.Millisecond)

	page, err := s.pets.List(context.Background(), api.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)

	after := s.session.Snapshot()
	assert.Equal(t, session.StatusAuthenticated, after.Status)
	assert.NotEqual(t, before, after.Tokens.AccessToken)
}

func TestRetryOnceAfterRejectedAccessToken(t *testing.T) {
	s := newStack(t, 15*time.Minute)

	// Seed a credential whose access half the server will reject while the
	// refresh half is genuine: the pipeline's single 401 retry must recover.
	pair, err := s.tokens.Issue("admin")
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, s.creds.Save(session.TokenPair{
		AccessToken:      "not-a-valid-jwt",
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(s.creds, api.NewAuthClient(s.server.URL, 5*time.Second), logger)
	client := api.NewClient(s.server.URL, 5*time.Second, manager, logger)
	service := pets.NewService(client, logger)

	page, err := service.List(context.Background(), api.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.True(t, manager.IsAuthenticated())
}

func TestExpiredRefreshTokenForcesLogout(t *testing.T) {
	s := newStack(t, 15*time.Minute)

	now := time.Now()
	require.NoError(t, s.creds.Save(session.TokenPair{
		AccessToken:      "stale-access",
		RefreshToken:     "stale-refresh",
		AccessExpiresAt:  now.Add(-time.Hour),
		RefreshExpiresAt: now.Add(-time.Minute),
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(s.creds, api.NewAuthClient(s.server.URL, 5*time.Second), logger)
	client := api.NewClient(s.server.URL, 5*time.Second, manager, logger)
	service := pets.NewService(client, logger)

	_, err := service.List(context.Background(), api.PageRequest{Page: 0, Size: 10})

	require.Error(t, err)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeSessionExpired))
	assert.False(t, manager.IsAuthenticated())

	// The persisted credential is gone too.
	saved, loadErr := s.creds.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, saved)
}

func TestSearchModeFullScan(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	s.login(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	facade := pets.NewFacade(s.pets, listview.Config{
		PageSize:       2,
		SearchPageSize: 3,
		MinSearchLen:   2,
	}, logger, nil)

	// Seed names: Rex, Luna, Bidu, Mel, Thor, Nina. Two contain "na".
	facade.SetQuery(context.Background(), "na")

	state := facade.Snapshot()
	require.Empty(t, state.Err)
	assert.Equal(t, 2, state.Total)
	require.Len(t, state.Items, 2)
	for _, p := range state.Items {
		assert.Contains(t, []string{"Luna", "Nina"}, p.Name)
	}

	// Dropping below the search threshold goes back to server paging.
	facade.SetQuery(context.Background(), "")
	state = facade.Snapshot()
	require.Empty(t, state.Err)
	assert.Equal(t, 6, state.Total)
	assert.Len(t, state.Items, 2)
}

func TestLogoutDiscardsSession(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	s.login(t)

	s.session.Logout()

	assert.False(t, s.session.IsAuthenticated())
	saved, err := s.creds.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)

	// Authenticated calls now abort before dispatch.
	_, err = s.pets.List(context.Background(), api.PageRequest{Page: 0, Size: 10})
	require.Error(t, err)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeSessionExpired) ||
		domainErrors.HasCode(err, domainErrors.CodeNotAuthenticated))
}

func TestCreateUpdateDeleteRoundTrip(t *testing.T) {
	s := newStack(t, 15*time.Minute)
	s.login(t)
	ctx := context.Background()

	created, err := s.pets.Create(ctx, pets.Input{Name: "Pipoca", Species: "gato", Age: 2})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	updated, err := s.pets.Update(ctx, created.ID, pets.Input{Name: "Pipoca II", Species: "gato", Age: 3})
	require.NoError(t, err)
	assert.Equal(t, "Pipoca II", updated.Name)

	require.NoError(t, s.pets.Delete(ctx, created.ID))

	_, err = s.pets.Get(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeUpstream))
	assert.Equal(t, 404, domainErrors.StatusOf(err))
}

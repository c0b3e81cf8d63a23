package session

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"patas/internal/session/metrics"
	dErrors "patas/pkg/domain-errors"
	"patas/pkg/platform/pubsub"
)

// DefaultSkew is the safety margin applied to the access token expiry check,
// so a token is refreshed before it can expire mid-flight between being read
// and the request reaching the server. The refresh token check intentionally
// uses zero skew: an expired refresh token has no partial-validity window.
const DefaultSkew = 15 * time.Second

// Manager is the single source of truth for "is the user logged in, and what
// credential should outgoing requests use right now". It owns the in-memory
// session state, mirrors every transition write-through into the credential
// store, and publishes committed states to subscribers.
//
// State machine: Anonymous --login--> Authenticated;
// Authenticated --logout | refresh expiry | refresh failure--> Anonymous;
// Authenticated --access near expiry, refresh ok--> Authenticated (new pair).
type Manager struct {
	store   CredentialStore
	api     AuthAPI
	logger  *slog.Logger
	metrics *metrics.Metrics

	skew time.Duration
	now  func() time.Time

	state *pubsub.Value[State]

	// Coalesces concurrent refresh calls: some backends invalidate refresh
	// tokens on first use, so duplicate in-flight refreshes must never race.
	refreshGroup singleflight.Group
}

// Option configures the Manager.
type Option func(*Manager)

// WithSkew overrides the access token expiry safety margin.
func WithSkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

// WithClock injects a time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics attaches session metrics collectors.
func WithMetrics(mm *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mm }
}

// NewManager constructs a Manager seeded from the credential store: if a
// complete quadruple is persisted, the session starts authenticated.
func NewManager(store CredentialStore, api AuthAPI, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		api:    api,
		logger: logger,
		skew:   DefaultSkew,
		now:    time.Now,
		state:  pubsub.NewValue(State{Status: StatusAnonymous}),
	}
	for _, opt := range opts {
		opt(m)
	}

	stored, err := store.Load()
	if err != nil {
		logger.Warn("failed to load persisted credentials, starting anonymous", "error", err)
	} else if stored != nil {
		m.state.Set(State{Status: StatusAuthenticated, Tokens: stored})
	}
	return m
}

// Snapshot returns the current session state. No side effects.
func (m *Manager) Snapshot() State {
	return m.state.Get()
}

// IsAuthenticated reports whether the session is currently authenticated.
func (m *Manager) IsAuthenticated() bool {
	s := m.state.Get()
	return s.Status == StatusAuthenticated && s.Tokens != nil
}

// RefreshToken returns the current refresh token, or "" when anonymous.
func (m *Manager) RefreshToken() string {
	if s := m.state.Get(); s.Tokens != nil {
		return s.Tokens.RefreshToken
	}
	return ""
}

// Subscribe registers a listener notified after every committed state
// transition. There is no replay on subscribe; read Snapshot first.
func (m *Manager) Subscribe(listener func(State)) func() {
	return m.state.Subscribe(listener)
}

// Login exchanges end-user credentials for a token pair and transitions the
// session to authenticated.
func (m *Manager) Login(ctx context.Context, req LoginRequest) error {
	pair, err := m.api.Login(ctx, req)
	if err != nil {
		m.metrics.IncrementLoginFailures()
		return err
	}
	m.setTokens(*pair)
	m.metrics.IncrementLogins()
	m.logger.Info("session authenticated", "access_expires_at", pair.AccessExpiresAt)
	return nil
}

// Logout clears persisted credentials and transitions to anonymous.
// It always succeeds and is idempotent.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear persisted credentials", "error", err)
	}
	m.state.Set(State{Status: StatusAnonymous})
}

// EnsureAccessToken returns an access token that is usable right now,
// refreshing the pair first when the access token is within the skew window
// of its expiry. When the refresh token itself has expired the session is
// forcibly logged out. A refresh failure propagates to the caller; the
// request pipeline owns the logout in that case.
func (m *Manager) EnsureAccessToken(ctx context.Context) (string, error) {
	s := m.state.Get()
	if s.Status != StatusAuthenticated || s.Tokens == nil {
		return "", dErrors.New(dErrors.CodeNotAuthenticated, "not authenticated")
	}

	now := m.now()
	if !s.Tokens.RefreshExpiresAt.After(now) {
		m.metrics.IncrementForcedExpirations()
		m.logger.Info("refresh token expired, forcing logout")
		m.Logout()
		return "", dErrors.New(dErrors.CodeSessionExpired, "session expired")
	}

	if s.Tokens.AccessExpiresAt.After(now.Add(m.skew)) {
		return s.Tokens.AccessToken, nil
	}

	token, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if shared {
		m.metrics.IncrementCoalescedRefreshes()
	}
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// ForceRefresh discards the current access token and obtains a new pair even
// when the stored expiry says the token is still good. The request pipeline
// calls it after the server rejects a locally fresh token (revoked
// server-side, clock drift). rejected is the token the server refused: a
// caller that queued behind a finished refresh gets the already-renewed token
// back without consuming another refresh.
func (m *Manager) ForceRefresh(ctx context.Context, rejected string) (string, error) {
	s := m.state.Get()
	if s.Status != StatusAuthenticated || s.Tokens == nil {
		return "", dErrors.New(dErrors.CodeNotAuthenticated, "not authenticated")
	}
	if !s.Tokens.RefreshExpiresAt.After(m.now()) {
		m.metrics.IncrementForcedExpirations()
		m.logger.Info("refresh token expired, forcing logout")
		m.Logout()
		return "", dErrors.New(dErrors.CodeSessionExpired, "session expired")
	}

	token, err, shared := m.refreshGroup.Do("refresh", func() (any, error) {
		s := m.state.Get()
		if s.Status != StatusAuthenticated || s.Tokens == nil {
			return "", dErrors.New(dErrors.CodeNotAuthenticated, "not authenticated")
		}
		if s.Tokens.AccessToken != rejected {
			return s.Tokens.AccessToken, nil
		}
		return m.doRefresh(ctx, s.Tokens.RefreshToken)
	})
	if shared {
		m.metrics.IncrementCoalescedRefreshes()
	}
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refresh runs inside the single-flight group. It re-reads the state so a
// caller that queued behind a finished refresh uses the new pair instead of
// replaying the consumed refresh token.
func (m *Manager) refresh(ctx context.Context) (any, error) {
	s := m.state.Get()
	if s.Status != StatusAuthenticated || s.Tokens == nil {
		return "", dErrors.New(dErrors.CodeNotAuthenticated, "not authenticated")
	}
	if s.Tokens.AccessExpiresAt.After(m.now().Add(m.skew)) {
		return s.Tokens.AccessToken, nil
	}
	return m.doRefresh(ctx, s.Tokens.RefreshToken)
}

// doRefresh performs the actual token exchange. Callers must already hold a
// slot in the single-flight group.
func (m *Manager) doRefresh(ctx context.Context, refreshToken string) (string, error) {
	start := m.now()
	pair, err := m.api.Refresh(ctx, refreshToken)
	m.metrics.ObserveRefreshDuration(float64(m.now().Sub(start).Milliseconds()))
	if err != nil {
		m.metrics.IncrementRefreshFailures()
		m.logger.Warn("token refresh failed", "error", err)
		return "", dErrors.Wrap(err, dErrors.CodeSessionExpired, "token refresh failed")
	}

	m.setTokens(*pair)
	m.metrics.IncrementTokenRefreshes()
	m.logger.Debug("access token refreshed", "access_expires_at", pair.AccessExpiresAt)
	return pair.AccessToken, nil
}

// setTokens persists the full pair and then commits and publishes the new
// state. The persisted mirror is write-through: a save failure is logged but
// does not block the in-memory transition.
func (m *Manager) setTokens(pair TokenPair) {
	if err := m.store.Save(pair); err != nil {
		m.logger.Warn("failed to persist credentials", "error", err)
	}
	m.state.Set(State{Status: StatusAuthenticated, Tokens: &pair})
}

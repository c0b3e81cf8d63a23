package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"patas/internal/session"
	"patas/internal/session/mocks"
	dErrors "patas/pkg/domain-errors"
)

type ManagerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockCredentialStore
	mockAPI   *mocks.MockAuthAPI
	now       time.Time
}

func (s *ManagerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockCredentialStore(s.ctrl)
	s.mockAPI = mocks.NewMockAuthAPI(s.ctrl)
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}

func (s *ManagerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) newManager(stored *session.TokenPair, opts ...session.Option) *session.Manager {
	s.mockStore.EXPECT().Load().Return(stored, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]session.Option{session.WithClock(func() time.Time { return s.now })}, opts...)
	return session.NewManager(s.mockStore, s.mockAPI, logger, opts...)
}

func (s *ManagerSuite) freshPair() *session.TokenPair {
	return &session.TokenPair{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		AccessExpiresAt:  s.now.Add(10 * time.Minute),
		RefreshExpiresAt: s.now.Add(30 * 24 * time.Hour),
	}
}

func (s *ManagerSuite) TestStartsAnonymousWithoutStoredCredentials() {
	m := s.newManager(nil)

	s.False(m.IsAuthenticated())
	s.Equal(session.StatusAnonymous, m.Snapshot().Status)
}

func (s *ManagerSuite) TestStartsAuthenticatedFromStoredCredentials() {
	m := s.newManager(s.freshPair())

	s.True(m.IsAuthenticated())
	s.Equal(session.StatusAuthenticated, m.Snapshot().Status)
}

func (s *ManagerSuite) TestStartsAnonymousWhenStoreLoadFails() {
	s.mockStore.EXPECT().Load().Return(nil, errors.New("disk error"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := session.NewManager(s.mockStore, s.mockAPI, logger)

	s.False(m.IsAuthenticated())
}

func (s *ManagerSuite) TestEnsureAccessToken_AnonymousFails() {
	m := s.newManager(nil)

	_, err := m.EnsureAccessToken(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthenticated))
}

func (s *ManagerSuite) TestEnsureAccessToken_FreshTokenReturnedWithoutRefresh() {
	// Access expiry is far beyond the skew window: no backend call expected.
	m := s.newManager(s.freshPair())

	token, err := m.EnsureAccessToken(context.Background())
	s.Require().NoError(err)
	s.Equal("access-1", token)
}

func (s *ManagerSuite) TestEnsureAccessToken_WithinSkewTriggersRefresh() {
	pair := s.freshPair()
	pair.AccessExpiresAt = s.now.Add(5 * time.Second) // inside the 15s skew window
	m := s.newManager(pair)

	renewed := &session.TokenPair{
		AccessToken:      "access-2",
		RefreshToken:     "refresh-2",
		AccessExpiresAt:  s.now.Add(15 * time.Minute),
		RefreshExpiresAt: s.now.Add(30 * 24 * time.Hour),
	}
	s.mockAPI.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(renewed, nil)
	s.mockStore.EXPECT().Save(*renewed).Return(nil)

	token, err := m.EnsureAccessToken(context.Background())
	s.Require().NoError(err)
	s.Equal("access-2", token)

	snap := m.Snapshot()
	s.Require().NotNil(snap.Tokens)
	s.Equal("refresh-2", snap.Tokens.RefreshToken)
}

func (s *ManagerSuite) TestEnsureAccessToken_ExpiredAccessTriggersExactlyOneRefresh() {
	pair := s.freshPair()
	pair.AccessExpiresAt = s.now.Add(-1 * time.Minute)
	m := s.newManager(pair)

	renewed := s.freshPair()
	renewed.AccessToken = "access-2"
	s.mockAPI.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(renewed, nil).Times(1)
	s.mockStore.EXPECT().Save(*renewed).Return(nil)

	token, err := m.EnsureAccessToken(context.Background())
	s.Require().NoError(err)
	s.Equal("access-2", token)
}

func (s *ManagerSuite) TestEnsureAccessToken_RefreshExpiryHasZeroSkew() {
	// Refresh token expired 1ms ago: the session is forcibly logged out even
	// though the access skew window would still tolerate this.
	pair := s.freshPair()
	pair.RefreshExpiresAt = s.now.Add(-time.Millisecond)
	m := s.newManager(pair)

	s.mockStore.EXPECT().Clear().Return(nil)

	_, err := m.EnsureAccessToken(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeSessionExpired))
	s.False(m.IsAuthenticated())
}

func (s *ManagerSuite) TestEnsureAccessToken_RefreshExpiryAtNowFails() {
	pair := s.freshPair()
	pair.RefreshExpiresAt = s.now
	m := s.newManager(pair)

	s.mockStore.EXPECT().Clear().Return(nil)

	_, err := m.EnsureAccessToken(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeSessionExpired))
}

func (s *ManagerSuite) TestEnsureAccessToken_RefreshFailurePropagatesWithoutLogout() {
	// A failed refresh call propagates; the request pipeline owns the logout.
	pair := s.freshPair()
	pair.AccessExpiresAt = s.now.Add(-1 * time.Minute)
	m := s.newManager(pair)

	s.mockAPI.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(nil, dErrors.New(dErrors.CodeNetwork, "connection refused"))

	_, err := m.EnsureAccessToken(context.Background())
	s.Error(err)
	s.True(m.IsAuthenticated(), "manager must not log out on refresh failure")
}

func (s *ManagerSuite) TestEnsureAccessToken_ConcurrentCallersShareOneRefresh() {
	pair := s.freshPair()
	pair.AccessExpiresAt = s.now.Add(-1 * time.Minute)
	m := s.newManager(pair)

	renewed := s.freshPair()
	renewed.AccessToken = "access-2"

	release := make(chan struct{})
	s.mockAPI.EXPECT().Refresh(gomock.Any(), "refresh-1").DoAndReturn(
		func(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
			<-release
			return renewed, nil
		}).Times(1)
	s.mockStore.EXPECT().Save(*renewed).Return(nil)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.EnsureAccessToken(context.Background())
		}(i)
	}

	// Give all callers time to reach the single-flight barrier, then let the
	// one in-flight refresh finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		s.Require().NoError(errs[i])
		s.Equal("access-2", tokens[i])
	}
}

func (s *ManagerSuite) TestForceRefresh_RefreshesDespiteFreshExpiry() {
	// The server rejected a token the local expiry still considers good
	// (revoked server-side). ForceRefresh must exchange the pair anyway.
	m := s.newManager(s.freshPair())

	renewed := s.freshPair()
	renewed.AccessToken = "access-2"
	renewed.RefreshToken = "refresh-2"
	s.mockAPI.EXPECT().Refresh(gomock.Any(), "refresh-1").Return(renewed, nil).Times(1)
	s.mockStore.EXPECT().Save(*renewed).Return(nil)

	token, err := m.ForceRefresh(context.Background(), "access-1")
	s.Require().NoError(err)
	s.Equal("access-2", token)
}

func (s *ManagerSuite) TestForceRefresh_AlreadyRotatedTokenSkipsRefresh() {
	// The rejected token is no longer the current one: another caller already
	// refreshed, so no second exchange happens.
	pair := s.freshPair()
	pair.AccessToken = "access-2"
	m := s.newManager(pair)

	token, err := m.ForceRefresh(context.Background(), "access-1")
	s.Require().NoError(err)
	s.Equal("access-2", token)
}

func (s *ManagerSuite) TestForceRefresh_AnonymousFails() {
	m := s.newManager(nil)

	_, err := m.ForceRefresh(context.Background(), "access-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotAuthenticated))
}

func (s *ManagerSuite) TestForceRefresh_ExpiredRefreshTokenForcesLogout() {
	pair := s.freshPair()
	pair.RefreshExpiresAt = s.now.Add(-time.Second)
	m := s.newManager(pair)

	s.mockStore.EXPECT().Clear().Return(nil)

	_, err := m.ForceRefresh(context.Background(), "access-1")
	s.True(dErrors.HasCode(err, dErrors.CodeSessionExpired))
	s.False(m.IsAuthenticated())
}

func (s *ManagerSuite) TestLogin_Success() {
	m := s.newManager(nil)

	pair := s.freshPair()
	req := session.LoginRequest{Username: "admin", Password: "secret"}
	s.mockAPI.EXPECT().Login(gomock.Any(), req).Return(pair, nil)
	s.mockStore.EXPECT().Save(*pair).Return(nil)

	s.Require().NoError(m.Login(context.Background(), req))
	s.True(m.IsAuthenticated())
}

func (s *ManagerSuite) TestLogin_RejectedLeavesAnonymous() {
	m := s.newManager(nil)

	req := session.LoginRequest{Username: "admin", Password: "wrong"}
	s.mockAPI.EXPECT().Login(gomock.Any(), req).Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "login rejected"))

	err := m.Login(context.Background(), req)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
	s.False(m.IsAuthenticated())
}

func (s *ManagerSuite) TestLogout_IsIdempotent() {
	m := s.newManager(s.freshPair())

	s.mockStore.EXPECT().Clear().Return(nil).Times(2)
	m.Logout()
	m.Logout()

	s.False(m.IsAuthenticated())
	s.Equal("", m.RefreshToken())
}

func (s *ManagerSuite) TestSubscribe_NotifiedAfterTransitions() {
	m := s.newManager(nil)

	var statuses []session.Status
	unsub := m.Subscribe(func(st session.State) { statuses = append(statuses, st.Status) })
	defer unsub()

	pair := s.freshPair()
	req := session.LoginRequest{Username: "admin", Password: "secret"}
	s.mockAPI.EXPECT().Login(gomock.Any(), req).Return(pair, nil)
	s.mockStore.EXPECT().Save(*pair).Return(nil)
	s.mockStore.EXPECT().Clear().Return(nil)

	s.Require().NoError(m.Login(context.Background(), req))
	m.Logout()

	s.Equal([]session.Status{session.StatusAuthenticated, session.StatusAnonymous}, statuses)
}

func (s *ManagerSuite) TestPersistFailureStillCommitsMemoryState() {
	m := s.newManager(nil)

	pair := s.freshPair()
	req := session.LoginRequest{Username: "admin", Password: "secret"}
	s.mockAPI.EXPECT().Login(gomock.Any(), req).Return(pair, nil)
	s.mockStore.EXPECT().Save(*pair).Return(errors.New("disk full"))

	s.Require().NoError(m.Login(context.Background(), req))
	s.True(m.IsAuthenticated())
}

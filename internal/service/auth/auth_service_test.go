package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/envelope"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Do(ctx context.Context, req httpclient.Request) ([]byte, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func pathIs(method, path string) interface{} {
	return mock.MatchedBy(func(req httpclient.Request) bool {
		return req.Method == method && req.Path == path && req.NoCache
	})
}

func unauthorized(path string) error {
	return &httpclient.AuthError{Method: http.MethodGet, Path: path, Message: "expired"}
}

func TestAuthService_Status_NoFlagSkipsNetwork(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)

	for _, ctx := range []context.Context{
		context.Background(),
		session.WithSession(context.Background(), session.Anonymous()),
		session.WithSession(context.Background(), session.New("stale-token", false, false)),
	} {
		user, err := service.Status(ctx)
		assert.NoError(t, err)
		assert.Nil(t, user)
	}

	api.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestAuthService_Status_Authenticated(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	sess := session.New("tok", true, true)
	ctx := session.WithSession(context.Background(), sess)

	api.On("Do", ctx, pathIs(http.MethodGet, "/auth/status")).
		Return([]byte(`{"user":{"id":5,"name":"Rani","email":"rani@example.com","role":"user"}}`), nil).Once()

	user, err := service.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.True(t, sess.LoggedIn())
	api.AssertExpectations(t)
}

func TestAuthService_Status_UnauthorizedClearsFlag(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	sess := session.New("tok", true, true)
	ctx := session.WithSession(context.Background(), sess)

	api.On("Do", ctx, pathIs(http.MethodGet, "/auth/status")).Return(nil, unauthorized("/auth/status")).Once()

	user, err := service.Status(ctx)
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.False(t, sess.LoggedIn())
	assert.True(t, sess.Changes().FlagChanged)
}

func TestAuthService_Status_OtherErrorsKeepFlag(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	sess := session.New("tok", true, true)
	ctx := session.WithSession(context.Background(), sess)

	transportErr := &httpclient.TransportError{Method: http.MethodGet, Path: "/auth/status", Err: errors.New("dial tcp: refused")}
	api.On("Do", ctx, pathIs(http.MethodGet, "/auth/status")).Return(nil, transportErr).Once()

	user, err := service.Status(ctx)
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, sess.LoggedIn())
}

func TestAuthService_RefreshToken(t *testing.T) {
	t.Run("401 clears flag", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		sess := session.New("tok", true, true)
		ctx := session.WithSession(context.Background(), sess)

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/refresh-token")).Return(nil, unauthorized("/auth/refresh-token")).Once()

		err := service.RefreshToken(ctx)
		assert.True(t, httpclient.IsUnauthorized(err))
		assert.False(t, sess.LoggedIn())
	})

	t.Run("401 with flag already cleared", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		sess := session.New("tok", false, false)
		ctx := session.WithSession(context.Background(), sess)

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/refresh-token")).Return(nil, unauthorized("/auth/refresh-token")).Once()

		assert.Error(t, service.RefreshToken(ctx))
		assert.False(t, sess.LoggedIn())
	})

	t.Run("500 keeps flag", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		sess := session.New("tok", true, true)
		ctx := session.WithSession(context.Background(), sess)

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/refresh-token")).
			Return(nil, &httpclient.StatusError{StatusCode: http.StatusInternalServerError}).Once()

		assert.Error(t, service.RefreshToken(ctx))
		assert.True(t, sess.LoggedIn())
	})

	t.Run("success", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		ctx := session.WithSession(context.Background(), session.New("tok", true, true))

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/refresh-token")).Return([]byte(`{"token":"opaque"}`), nil).Once()

		assert.NoError(t, service.RefreshToken(ctx))
		api.AssertExpectations(t)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("success clears flag", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		sess := session.New("tok", true, true)
		ctx := session.WithSession(context.Background(), sess)

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/logout")).Return([]byte(`{"message":"Logged out"}`), nil).Once()

		msg, err := service.Logout(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Logged out", msg)
		assert.False(t, sess.LoggedIn())
	})

	t.Run("401 clears flag and surfaces error", func(t *testing.T) {
		api := &MockAPI{}
		service := NewAuthService(api)
		sess := session.New("tok", true, true)
		ctx := session.WithSession(context.Background(), sess)

		api.On("Do", ctx, pathIs(http.MethodPost, "/auth/logout")).Return(nil, unauthorized("/auth/logout")).Once()

		_, err := service.Logout(ctx)
		assert.True(t, httpclient.IsUnauthorized(err))
		assert.False(t, sess.LoggedIn())
	})
}

func TestAuthService_Login(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	sess := session.Anonymous()
	ctx := session.WithSession(context.Background(), sess)
	req := domain.LoginRequest{Email: "rani@example.com", Password: "secret"}

	api.On("Do", ctx, httpclient.Request{Method: http.MethodPost, Path: "/auth/login", Body: req, NoCache: true}).
		Return([]byte(`{"user":{"id":5,"email":"rani@example.com","role":"user"},"token":"x"}`), nil).Once()

	user, err := service.Login(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	assert.True(t, sess.LoggedIn())
	api.AssertExpectations(t)
}

func TestAuthService_Login_Validation(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)

	_, err := service.Login(context.Background(), domain.LoginRequest{Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrCredentialsRequired)
	api.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestAuthService_Register_UnexpectedShape(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	req := domain.RegisterRequest{Name: "Rani", Email: "rani@example.com", Password: "secret"}

	api.On("Do", mock.Anything, pathIs(http.MethodPost, "/auth/register")).Return([]byte(`{"message":"created"}`), nil).Once()

	_, err := service.Register(context.Background(), req)
	assert.True(t, errors.Is(err, envelope.ErrUnexpectedShape))
}

func TestAuthService_Register(t *testing.T) {
	api := &MockAPI{}
	service := NewAuthService(api)
	req := domain.RegisterRequest{Name: "Rani", Email: "rani@example.com", Password: "secret"}

	api.On("Do", mock.Anything, pathIs(http.MethodPost, "/auth/register")).
		Return([]byte(`{"user":{"id":9,"name":"Rani","email":"rani@example.com"}}`), nil).Once()

	user, err := service.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Rani", user.Name)
}

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/envelope"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/session"
	"github.com/rs/zerolog"
)

type AuthUseCase interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Logout(ctx context.Context) (string, error)
	Status(ctx context.Context) (*domain.User, error)
	RefreshToken(ctx context.Context) error
}

type API interface {
	Do(ctx context.Context, req httpclient.Request) ([]byte, error)
}

type AuthService struct {
	api API
	log zerolog.Logger
}

type AuthServiceOption func(*AuthService)

func WithLogger(log zerolog.Logger) AuthServiceOption {
	return func(s *AuthService) {
		s.log = log
	}
}

func NewAuthService(api API, opts ...AuthServiceOption) *AuthService {
	service := &AuthService{api: api, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Login posts credentials. The backend answers with Set-Cookie for the
// session token; the transport stores it in the context session.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrCredentialsRequired
	}
	body, err := s.api.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Body:    req,
		NoCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user, err := envelope.DecodeOne[domain.User](body, "user")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/auth/login").Msg("unexpected response shape")
		return nil, fmt.Errorf("login: %w", err)
	}
	if sess := session.FromContext(ctx); sess != nil {
		sess.MarkLoggedIn()
	}
	return &user.Value, nil
}

func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, domain.ErrRegistrationIncomplete
	}
	body, err := s.api.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/register",
		Body:    req,
		NoCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user, err := envelope.DecodeOne[domain.User](body, "user")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/auth/register").Msg("unexpected response shape")
		return nil, fmt.Errorf("register: %w", err)
	}
	return &user.Value, nil
}

// Logout clears the presence flag whatever the backend answers.
func (s *AuthService) Logout(ctx context.Context) (string, error) {
	body, err := s.api.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/logout",
		Body:    struct{}{},
		NoCache: true,
	})
	if sess := session.FromContext(ctx); sess != nil {
		sess.ClearFlag()
	}
	if err != nil {
		s.log.Error().Err(err).Msg("logout failed")
		return "", fmt.Errorf("logout: %w", err)
	}
	return messageOf(body), nil
}

// Status returns the current user, or nil when unauthenticated. Without the
// presence flag no request is made. A 401 clears the flag and reports
// unauthenticated; other failures are returned.
func (s *AuthService) Status(ctx context.Context) (*domain.User, error) {
	sess := session.FromContext(ctx)
	if sess == nil || !sess.LoggedIn() {
		return nil, nil
	}

	body, err := s.api.Do(ctx, httpclient.Request{
		Method:  http.MethodGet,
		Path:    "/auth/status",
		NoCache: true,
	})
	if err != nil {
		if httpclient.IsUnauthorized(err) {
			sess.ClearFlag()
			s.log.Info().Msg("session expired on backend, presence flag cleared")
			return nil, nil
		}
		s.log.Error().Err(err).Msg("auth status failed")
		return nil, fmt.Errorf("auth status: %w", err)
	}

	user, err := envelope.DecodeOne[domain.User](body, "user")
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", "/auth/status").Msg("unexpected response shape")
		return nil, fmt.Errorf("auth status: %w", err)
	}
	return &user.Value, nil
}

func (s *AuthService) RefreshToken(ctx context.Context) error {
	_, err := s.api.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    "/auth/refresh-token",
		Body:    struct{}{},
		NoCache: true,
	})
	if err != nil {
		if httpclient.IsUnauthorized(err) {
			if sess := session.FromContext(ctx); sess != nil {
				sess.ClearFlag()
			}
		}
		s.log.Error().Err(err).Msg("refresh token failed")
		return fmt.Errorf("refresh token: %w", err)
	}
	return nil
}

func messageOf(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

var _ AuthUseCase = (*AuthService)(nil)

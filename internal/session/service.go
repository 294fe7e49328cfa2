package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrSignupFailed = errors.New("signup failed")
)

type API interface {
	CurrentUser(ctx context.Context, creds *calcapi.Credentials) (*calcapi.AuthResponse, error)
	Login(ctx context.Context, creds *calcapi.Credentials, req *calcapi.LoginRequest) (*calcapi.AuthResponse, error)
	Signup(ctx context.Context, creds *calcapi.Credentials, req *calcapi.SignupRequest) (*calcapi.AuthResponse, error)
	Logout(ctx context.Context, creds *calcapi.Credentials) error
}

// Service performs the session operations against the remote API. It holds no per-user state;
// every operation works on the session passed to it.
type Service struct {
	api API
	log *slog.Logger
}

func NewService(log *slog.Logger, api API) *Service {
	return &Service{api: api, log: log}
}

// Check resolves the session state from the current-user endpoint. Any failure yields the
// logged-out state.
func (s *Service) Check(ctx context.Context, sess *Session) {
	rsp, err := s.api.CurrentUser(ctx, &sess.Creds)
	if err != nil {
		if !calcapi.IsUnauthorized(err) {
			s.log.Info("session check failed", slogx.Err(err))
		}
		sess.State = LoggedOut()
		return
	}
	sess.State = LoggedInAs(rsp.User)
}

func (s *Service) authenticated(sess *Session, rsp *calcapi.AuthResponse, err error, failure error) (*calcapi.AuthResponse, error) {
	if err == nil && rsp.User == nil {
		err = fmt.Errorf("no user in response")
	}
	if err != nil {
		sess.State = LoggedOut()
		return nil, fmt.Errorf("%w: %w", failure, err)
	}
	sess.State = LoggedInAs(rsp.User)
	return rsp, nil
}

func (s *Service) Login(ctx context.Context, sess *Session, username, password string) (*calcapi.AuthResponse, error) {
	rsp, err := s.api.Login(ctx, &sess.Creds, &calcapi.LoginRequest{
		Username: username,
		Password: password,
	})
	return s.authenticated(sess, rsp, err, ErrLoginFailed)
}

func (s *Service) Signup(ctx context.Context, sess *Session, username, email, password string) (*calcapi.AuthResponse, error) {
	rsp, err := s.api.Signup(ctx, &sess.Creds, &calcapi.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	return s.authenticated(sess, rsp, err, ErrSignupFailed)
}

// Logout ends the remote session. Errors are only logged; the session is reset regardless.
func (s *Service) Logout(ctx context.Context, sess *Session) {
	if err := s.api.Logout(ctx, &sess.Creds); err != nil {
		s.log.Warn("logout error", slogx.Err(err))
	}
	sess.Creds.Clear()
	sess.State = LoggedOut()
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"clinic-management-api/internal/auth"
	"clinic-management-api/internal/store"
)

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token string `json:"token"`
}

type LoginService struct {
	users  store.UserStore
	secret string
	log    *slog.Logger
}

func NewLoginService(users store.UserStore, secret string, log *slog.Logger) *LoginService {
	return &LoginService{users: users, secret: secret, log: log}
}

// Execute checks credentials and issues a one-hour bearer token carrying
// a fresh session id. Persisting that id as the user's sole current
// session is what invalidates tokens from any earlier login.
func (s *LoginService) Execute(ctx context.Context, in LoginInput) (*LoginResult, error) {
	u, err := s.users.ByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, E(CodeUnauthorized, "Invalid credentials.")
		}
		return nil, err
	}

	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, E(CodeUnauthorized, "Invalid credentials.")
	}

	sessionID := uuid.New().String()
	if err := s.users.SetCurrentSession(ctx, u.ID, &sessionID); err != nil {
		return nil, err
	}

	tok, err := auth.MakeToken(u.ID, u.Email, sessionID, s.secret)
	if err != nil {
		return nil, err
	}

	s.log.Info("login", "user", u.ID)
	return &LoginResult{Token: tok}, nil
}

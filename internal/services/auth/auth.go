package authservice

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	jwtlib "github.com/zanzhit/snapshot_recorder/internal/lib/jwt"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

// AuthService authenticates the single operator account configured through
// the environment.
type AuthService struct {
	log      *slog.Logger
	username string
	passHash []byte
	tokenTTL time.Duration
	secret   string
}

func New(log *slog.Logger, username, passHash string, tokenTTL time.Duration, secret string) *AuthService {
	return &AuthService{
		log:      log,
		username: username,
		passHash: []byte(passHash),
		tokenTTL: tokenTTL,
		secret:   secret,
	}
}

func (s *AuthService) Login(username, password string) (models.AuthToken, error) {
	const op = "service.auth.Login"

	log := s.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login user")

	if username != s.username {
		log.Warn("unknown user")

		return models.AuthToken{}, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return models.AuthToken{}, fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	expiresAt := time.Now().Add(s.tokenTTL)

	token, err := jwtlib.NewToken(username, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return models.AuthToken{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully")

	return models.AuthToken{Value: token, ExpiresAt: expiresAt}, nil
}

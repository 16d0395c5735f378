// Package services contains the server's business logic: doctor accounts
// and tokens, patients, text and voice logs, and the assistant.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/cryptox"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/auth"
	"github.com/dmitrijs2005/medscribe/internal/server/config"
	"github.com/dmitrijs2005/medscribe/internal/server/models"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/repomanager"
)

const minPasswordLength = 8

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService registers doctors, logs them in and rotates refresh tokens.
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *AuthService) Register(ctx context.Context, name, email string, password []byte) (*models.Doctor, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", common.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidInput, minPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d := &models.Doctor{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash}
	return s.repomanager.Doctors(s.db).Create(ctx, d)
}

// Login checks the password and mints a token pair. Unknown emails and wrong
// passwords both yield common.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email string, password []byte) (*models.Doctor, *TokenPair, error) {
	d, err := s.repomanager.Doctors(s.db).GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}
	if !cryptox.CheckPassword(d.PasswordHash, password) {
		return nil, nil, common.ErrUnauthorized
	}

	pair, err := s.generateTokenPair(ctx, d.ID, s.db)
	if err != nil {
		return nil, nil, err
	}
	return d, pair, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. A token can be used once; a second use, or an
// unknown token, yields common.ErrUnauthorized.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(s.now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			return common.ErrUnauthorized
		}
		pair, err = s.generateTokenPair(ctx, token.DoctorID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Authenticate returns the doctor id carried by an access token.
func (s *AuthService) Authenticate(accessToken string) (string, error) {
	return auth.GetDoctorIDFromToken(accessToken, s.jwtSecret)
}

func (s *AuthService) generateTokenPair(ctx context.Context, doctorID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(doctorID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrInternal
	}
	expires := s.now().Add(s.refreshTokenValidityDuration)
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, doctorID, refresh, expires); err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Package services contains application services for the medscribe CLI.
// This file defines the authentication service: online and offline login,
// registration, token rotation, and housekeeping of the locally cached
// session.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/cryptox"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server, cache the session locally and
//     return it with the key of the local media spool.
//   - OfflineLogin: verify the password against the cached verifier and
//     resume the cached session without the server.
//   - Register: create a doctor account on the server.
//   - SaveTokens: persist tokens rotated by the transport.
//   - Logout: wipe the cached session.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, email string, password []byte) (*models.Session, []byte, error)
	OfflineLogin(ctx context.Context, email string, password []byte) (*models.Session, []byte, error)
	Register(ctx context.Context, name, email string, password []byte) error
	SaveTokens(ctx context.Context, access, refresh string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Logout(ctx context.Context) error
}

// authService is the concrete AuthService backed by a remote Client
// and a local SQL database for the cached session.
type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// Login authenticates against the server and caches the session, the spool
// salt and a password verifier for later offline logins. It returns the
// session and the spool key derived from password.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.Session, []byte, error) {
	email = normalizeEmail(email)
	s, err := a.client.Login(ctx, email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("login error: %w", err)
	}
	if s.Email == "" {
		s.Email = email
	}

	verifier, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	var salt []byte
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.repo(tx)

		var prev models.Session
		found, err := metadata.GetJSON(ctx, repo, metadata.KeySession, &prev)
		if err != nil {
			return err
		}
		if found && prev.DoctorID != s.DoctorID {
			// Another doctor's spool cannot be opened with this key.
			if err := repo.Delete(ctx, metadata.KeySpoolSalt); err != nil {
				return err
			}
		}

		salt, err = repo.Get(ctx, metadata.KeySpoolSalt)
		if err != nil {
			return err
		}
		if salt == nil {
			salt = cryptox.NewSalt()
			if err := repo.Set(ctx, metadata.KeySpoolSalt, salt); err != nil {
				return err
			}
		}
		if err := repo.Set(ctx, metadata.KeyVerifier, verifier); err != nil {
			return err
		}
		return metadata.SetJSON(ctx, repo, metadata.KeySession, s)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session saving error: %w", err)
	}

	return s, cryptox.DeriveKey(password, salt), nil
}

// OfflineLogin resumes the cached session of email. It returns
// client.ErrLocalDataNotAvailable when nothing is cached and
// common.ErrUnauthorized when the email or password does not match.
func (a *authService) OfflineLogin(ctx context.Context, email string, password []byte) (*models.Session, []byte, error) {
	repo := a.repo(a.db)

	var s models.Session
	found, err := metadata.GetJSON(ctx, repo, metadata.KeySession, &s)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, client.ErrLocalDataNotAvailable
	}
	if s.Email != normalizeEmail(email) {
		return nil, nil, common.ErrUnauthorized
	}

	verifier, err := repo.Get(ctx, metadata.KeyVerifier)
	if err != nil {
		return nil, nil, err
	}
	salt, err := repo.Get(ctx, metadata.KeySpoolSalt)
	if err != nil {
		return nil, nil, err
	}
	if verifier == nil || salt == nil {
		return nil, nil, client.ErrLocalDataNotAvailable
	}
	if !cryptox.CheckPassword(verifier, password) {
		return nil, nil, common.ErrUnauthorized
	}

	a.client.SetTokens(s.AccessToken, s.RefreshToken)
	return &s, cryptox.DeriveKey(password, salt), nil
}

// Register creates a new doctor account on the server.
func (a *authService) Register(ctx context.Context, name, email string, password []byte) error {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || len(password) == 0 {
		return fmt.Errorf("%w: name, email and password are required", common.ErrInvalidInput)
	}
	return a.client.Register(ctx, name, email, password)
}

// SaveTokens updates the cached session after the transport rotated tokens.
func (a *authService) SaveTokens(ctx context.Context, access, refresh string) error {
	repo := a.repo(a.db)
	var s models.Session
	found, err := metadata.GetJSON(ctx, repo, metadata.KeySession, &s)
	if err != nil || !found {
		return err
	}
	s.AccessToken = access
	s.RefreshToken = refresh
	return metadata.SetJSON(ctx, repo, metadata.KeySession, s)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// Logout forgets the tokens and wipes the cached session and keys.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	return a.repo(a.db).Clear(ctx)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

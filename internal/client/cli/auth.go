package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/client/client"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a name, an email and a password and creates a doctor
// account on the server. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, name, email, password); err != nil {
		return err
	}

	printlnFn("Success! You can log in now.")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
//
// The method first attempts an online login. If the server is unavailable
// it falls back to the session cached by the last online login. On success
// it unlocks the media spool, restores spooled audio and reloads the
// remembered patient. Mode ends up as:
//   - ModeOnline if online login succeeds,
//   - ModeOffline if offline login succeeds,
//   - ModeDisabled if both fail.
//
// The password is securely wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	mode := ModeOnline
	sess, key, err := a.authService.Login(ctx, email, password)
	if errors.Is(err, client.ErrUnavailable) {
		a.logger.Info(ctx, "server unavailable, trying offline login")
		mode = ModeOffline
		sess, key, err = a.authService.OfflineLogin(ctx, email, password)
	}
	if err != nil {
		a.logger.Warn(ctx, "login unsuccessful", "mode", mode, "error", err)
		if mode == ModeOffline {
			a.setMode(ModeDisabled)
		}
		return err
	}
	defer common.WipeByteArray(key)

	a.spool.Unlock(key)
	if n, err := a.controller.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "restore spooled audio", "error", err)
	} else if n > 0 {
		printlnFn(fmt.Sprintf("%d voice log(s) can be retried.", n))
	}

	patient, err := a.patientService.Current(ctx)
	if err != nil {
		a.logger.Warn(ctx, "load current patient", "error", err)
	}

	a.mu.Lock()
	a.session = sess
	a.patient = patient
	a.mu.Unlock()
	a.setMode(mode)

	a.logger.Info(ctx, "logged in", "doctor_id", sess.DoctorID, "mode", mode)
	printlnFn(fmt.Sprintf("Logged in as %s (%s).", displayName(sess), mode))
	return nil
}

// Logout waits for running submissions, then forgets the cached session,
// the local records and the spooled audio.
func (a *App) Logout(ctx context.Context) error {
	a.controller.Wait()

	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	if _, err := a.spool.Prune(ctx, func(string) bool { return false }); err != nil {
		a.logger.Warn(ctx, "prune spool", "error", err)
	}
	a.spool.Lock()

	a.mu.Lock()
	a.session = nil
	a.patient = nil
	a.mu.Unlock()

	printlnFn("Logged out.")
	return nil
}

func displayName(s *models.Session) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

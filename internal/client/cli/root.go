package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/client/optimistic"
	"github.com/dmitrijs2005/medscribe/internal/common"
)

var (
	errNotLoggedIn     = errors.New("please log in first")
	errNoPatient       = errors.New("no patient selected, use 'patients' and 'use <id>'")
	errNotAvailableNow = errors.New("not available offline")
)

func (a *App) getStatus() string {
	s := ""
	if sess := a.currentSession(); sess != nil {
		s = sess.Email + " "
	}
	if p := a.currentPatient(); p != nil {
		s += "[" + p.FullName() + "] "
	}
	if m := a.mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root greets the user, tries to log in and runs the REPL until exit.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to medscribe CLI (type 'help' for commands)")

	if err := a.Login(ctx); err != nil {
		printlnFn(styles.failed.Render(userMessage(err)))
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(wctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

// userMessage picks the text shown for a failed command.
func userMessage(err error) string {
	switch {
	case errors.Is(err, optimistic.ErrRejected),
		errors.Is(err, errNotLoggedIn),
		errors.Is(err, errNoPatient),
		errors.Is(err, errUsage),
		errors.Is(err, errNotAvailableNow),
		errors.Is(err, common.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return "Wrong email or password."
	case errors.Is(err, common.ErrAlreadyExists):
		return "Already exists."
	case errors.Is(err, common.ErrNotFound):
		return "Not found."
	}
	_, msg := optimistic.Describe(err)
	return msg
}

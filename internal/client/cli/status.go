package cli

import (
	"context"
	"fmt"
)

// Status checks the server and prints the connectivity and the number of
// unconfirmed submissions.
func (a *App) Status(ctx context.Context) error {
	a.checkOnline(ctx)

	mode := a.mode()
	if mode == "" {
		mode = "not logged in"
	}
	printlnFn(fmt.Sprintf("Server %s: %s", a.config.ServerURL, mode))
	printlnFn(fmt.Sprintf("Unconfirmed submissions: %d", a.tracker.Len()))
	if p := a.currentPatient(); p != nil {
		printlnFn(fmt.Sprintf("Patient: %s (%s)", p.FullName(), p.ID))
	}
	return nil
}

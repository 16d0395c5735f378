package cli

import (
	"context"
	"strings"
	"time"
)

// Ask sends question about the current patient to the AI assistant and
// prints the answer. The call blocks until the server answers.
func (a *App) Ask(ctx context.Context, question string) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}
	if a.mode() != ModeOnline {
		return errNotAvailableNow
	}

	printlnFn(styles.dim.Render("Thinking..."))
	x, err := a.assistant.Ask(ctx, p.ID, a.doctorID(), question)
	if err != nil {
		return err
	}
	printlnFn(strings.TrimRight(renderExchange(x, time.Local, a.config.WrapWidth), "\n"))
	return nil
}

// AI prints the AI conversation about the current patient, merged with the
// history stored on the server when online.
func (a *App) AI(ctx context.Context) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}

	list := a.store.AI.Get(p.ID)
	if a.mode() == ModeOnline {
		merged, err := a.assistant.LoadHistory(ctx, p.ID)
		if err != nil {
			a.logger.Warn(ctx, "load ai history", "patient_id", p.ID, "error", err)
		} else {
			list = merged
		}
	}

	if len(list) == 0 {
		printlnFn(styles.dim.Render("No questions asked yet."))
		return nil
	}
	var b strings.Builder
	for _, x := range list {
		b.WriteString(renderExchange(x, time.Local, a.config.WrapWidth))
	}
	printlnFn(strings.TrimRight(b.String(), "\n"))
	return nil
}

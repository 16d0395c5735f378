package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/optimistic"
	"github.com/dmitrijs2005/medscribe/internal/client/timeline"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/filex"
)

const maxAudioSize = 50 << 20

// Log submits a text log for the current patient. An empty text starts a
// multi-line prompt. The command returns as soon as the log is shown as
// pending; the outcome is printed when the server answers.
func (a *App) Log(ctx context.Context, text string) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}
	if text == "" {
		if text, err = GetMultiline(a.reader, "Enter log text", a.out); err != nil {
			return err
		}
	}

	id, err := a.controller.SendMessage(ctx, optimistic.MessageRequest{
		PatientID:        p.ID,
		DoctorID:         a.doctorID(),
		ConversationType: models.ConversationDoctorOnly,
		Body:             text,
	})
	if err != nil {
		return err
	}
	printlnFn(styles.pending.Render(fmt.Sprintf("Sending log %s...", id)))
	return nil
}

// Voice uploads an audio file as a voice log. duration is in seconds and may
// be empty, in which case it is read from the file when the format allows.
func (a *App) Voice(ctx context.Context, path, duration string) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}

	var secs float64
	if duration != "" {
		secs, err = strconv.ParseFloat(duration, 64)
		if err != nil || secs < 0 {
			return fmt.Errorf("%w: duration must be a number of seconds", common.ErrInvalidInput)
		}
	}

	data, err := filex.ReadLimited(path, maxAudioSize)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	id, err := a.controller.SendRecording(ctx, optimistic.RecordingRequest{
		PatientID:        p.ID,
		DoctorID:         a.doctorID(),
		ConversationType: models.ConversationDoctorOnly,
		Audio: &models.Media{
			Data:        data,
			ContentType: filex.ContentType(path, data),
			FileName:    filepath.Base(path),
		},
		Duration: secs,
	})
	if err != nil {
		return err
	}
	printlnFn(styles.pending.Render(fmt.Sprintf("Uploading voice log %s...", id)))
	return nil
}

// Timeline prints the text and voice logs of the current patient grouped by
// day, newest day last.
func (a *App) Timeline(ctx context.Context) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}

	items := timeline.Interleave(a.store.Messages.Get(p.ID), a.store.Recordings.Get(p.ID))
	canRetry := func(it timeline.Item) bool {
		return a.controller.CanRetry(ctx, itemKind(it), p.ID, it.ID())
	}
	printlnFn(renderTimeline(items, a.now(), time.Local, a.config.WrapWidth, canRetry))
	return nil
}

// Retry resubmits the failed log id of the current patient under the same id.
func (a *App) Retry(ctx context.Context, id string) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}

	if _, ok := a.store.Messages.Find(p.ID, id); ok {
		err = a.controller.RetryMessage(ctx, p.ID, id)
	} else if _, ok := a.store.Recordings.Find(p.ID, id); ok {
		err = a.controller.RetryRecording(ctx, p.ID, id)
	} else {
		return fmt.Errorf("%w: no log %s", common.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	printlnFn(styles.pending.Render(fmt.Sprintf("Retrying %s...", id)))
	return nil
}

// Refresh reloads the logs of the current patient from the server and
// merges them with the local ones.
func (a *App) Refresh(ctx context.Context) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}
	if a.mode() != ModeOnline {
		return errNotAvailableNow
	}
	if err := a.controller.Refresh(ctx, p.ID); err != nil {
		return err
	}
	return a.Timeline(ctx)
}

// Pending lists the submissions of the current patient that the server has
// not confirmed yet.
func (a *App) Pending(ctx context.Context) error {
	p, err := a.requirePatient()
	if err != nil {
		return err
	}

	subs := a.tracker.List(p.ID)
	if len(subs) == 0 {
		printlnFn(styles.dim.Render("Nothing pending."))
		return nil
	}
	for _, kind := range []models.Kind{models.KindMessages, models.KindRecordings} {
		if a.tracker.Busy(p.ID, kind) {
			printlnFn(styles.pending.Render(fmt.Sprintf("Uploading %s...", kind)))
		}
	}
	for _, s := range subs {
		line := fmt.Sprintf("%s  %-10s %s  attempt %d", s.ID, s.Kind, statusBadge(s.Status), s.Attempts)
		if s.ErrorCode != "" {
			line += "  " + styles.dim.Render(s.ErrorCode)
		}
		printlnFn(line)
	}
	return nil
}

func itemKind(it timeline.Item) models.Kind {
	if it.Recording != nil {
		return models.KindRecordings
	}
	return models.KindMessages
}

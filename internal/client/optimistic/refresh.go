package optimistic

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/reconcile"
	"golang.org/x/sync/errgroup"
)

// Refresh fetches both lists of patientID and merges them into the store.
// Local records the server does not know about yet are kept.
func (c *Controller) Refresh(ctx context.Context, patientID string) error {
	var (
		msgs []models.Message
		recs []models.Recording
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = c.api.ListMessages(gctx, patientID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recs, err = c.api.ListRecordings(gctx, patientID)
		if err != nil {
			return fmt.Errorf("list recordings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mergeMessages(patientID, msgs)
	c.mergeRecordings(ctx, patientID, recs)
	return nil
}

func (c *Controller) refreshMessages(ctx context.Context, patientID string) error {
	msgs, err := c.api.ListMessages(ctx, patientID)
	if err != nil {
		return err
	}
	c.mergeMessages(patientID, msgs)
	return nil
}

func (c *Controller) refreshRecordings(ctx context.Context, patientID string) error {
	recs, err := c.api.ListRecordings(ctx, patientID)
	if err != nil {
		return err
	}
	c.mergeRecordings(ctx, patientID, recs)
	return nil
}

func (c *Controller) mergeMessages(patientID string, server []models.Message) {
	var dropped []models.Message
	c.store.Messages.Update(patientID, func(prev []models.Message) []models.Message {
		next := reconcile.Merge(server, prev, c.mergeOpts...)
		dropped = superseded(prev, next)
		return next
	})
	for _, m := range dropped {
		if !c.tracker.InFlight(m.ID) {
			c.tracker.Remove(patientID, m.ID)
		}
	}
}

func (c *Controller) mergeRecordings(ctx context.Context, patientID string, server []models.Recording) {
	var dropped []models.Recording
	c.store.Recordings.Update(patientID, func(prev []models.Recording) []models.Recording {
		next := reconcile.Merge(server, prev, c.mergeOpts...)
		dropped = superseded(prev, next)
		return next
	})
	for _, r := range dropped {
		c.release(ctx, r)
		if !c.tracker.InFlight(r.ID) {
			c.tracker.Remove(patientID, r.ID)
		}
	}
}

// superseded returns the local-only records of prev that next no longer
// holds.
func superseded[T models.Record[T]](prev, next []T) []T {
	keep := make(map[string]struct{}, len(next))
	for _, r := range next {
		keep[r.RecordID()] = struct{}{}
	}
	var out []T
	for _, r := range prev {
		if _, ok := keep[r.RecordID()]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Restore gives rehydrated recordings that are not yet on the server a
// fresh playback handle from the spool, and drops spooled audio that no
// record refers to any more. Call it after store rehydration and spool
// unlock.
func (c *Controller) Restore(ctx context.Context) (int, error) {
	if c.spool == nil {
		return 0, nil
	}

	refs := make(map[string]struct{})
	n := 0
	for _, pid := range c.store.Recordings.Patients() {
		for _, r := range c.store.Recordings.Get(pid) {
			if r.SourceRef == "" || r.RecordStatus() == models.StatusSent {
				continue
			}
			refs[r.SourceRef] = struct{}{}
			if _, live := c.handles.Resolve(r.URL); live && !r.Source.Empty() {
				continue
			}
			src, err := c.spool.Get(ctx, r.SourceRef)
			if err != nil {
				c.logger.Warn(ctx, "restore spooled audio", "id", r.ID, "error", err)
				continue
			}
			handle := c.handles.Create(src)
			ok := c.store.Recordings.Patch(pid, r.ID, func(x models.Recording) models.Recording {
				x.URL = handle
				x.Source = src
				return x
			})
			if !ok {
				c.handles.Revoke(handle)
				continue
			}
			n++
		}
	}

	if _, err := c.spool.Prune(ctx, func(id string) bool {
		_, ok := refs[id]
		return ok
	}); err != nil {
		return n, fmt.Errorf("prune spool: %w", err)
	}
	return n, nil
}

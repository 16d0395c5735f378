// Package reconcile merges authoritative server lists with the local,
// partly optimistic, view of the same records.
package reconcile

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

type options struct {
	byTimestamp bool
}

type Option func(*options)

// ByTimestamp also treats a local record as superseded when a server record
// without a correlation id carries exactly the same timestamp. Two local
// submissions made in the same instant cannot be told apart this way, so it
// is only a fallback for servers that do not echo the client reference.
func ByTimestamp() Option {
	return func(o *options) { o.byTimestamp = true }
}

// Merge returns the list to display for one patient: every server record,
// plus the local records the server does not know about yet, sorted
// ascending by timestamp. Server records with an empty status come back as
// sent.
//
// A local record is superseded when a server record has the same id, or
// echoes the local id as its correlation id. The result depends only on the
// union of local and server state, so a refresh and a submission's own
// success handler can apply in either order.
func Merge[T models.Record[T]](server, local []T, opts ...Option) []T {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ids := make(map[string]struct{}, len(server))
	refs := make(map[string]struct{}, len(server))
	stamps := make(map[time.Time]struct{})
	for _, r := range server {
		ids[r.RecordID()] = struct{}{}
		if ref := r.CorrelationID(); ref != "" {
			refs[ref] = struct{}{}
		} else if o.byTimestamp {
			stamps[r.RecordTime().UTC()] = struct{}{}
		}
	}

	out := make([]T, 0, len(server)+len(local))
	for _, r := range local {
		if superseded(r, ids, refs, stamps) {
			continue
		}
		out = append(out, r)
	}
	for _, r := range server {
		out = append(out, r.WithStatus(r.RecordStatus()))
	}

	SortByTime(out)
	return out
}

func superseded[T models.Record[T]](r T, ids, refs map[string]struct{}, stamps map[time.Time]struct{}) bool {
	if _, ok := ids[r.RecordID()]; ok {
		return true
	}
	if _, ok := refs[r.RecordID()]; ok {
		return true
	}
	if ref := r.CorrelationID(); ref != "" {
		if _, ok := refs[ref]; ok {
			return true
		}
	}
	if len(stamps) > 0 && r.RecordStatus() != models.StatusSent {
		if _, ok := stamps[r.RecordTime().UTC()]; ok {
			return true
		}
	}
	return false
}

// SortByTime stable-sorts records ascending by timestamp.
func SortByTime[T models.Record[T]](records []T) {
	slices.SortStableFunc(records, func(a, b T) int {
		return a.RecordTime().Compare(b.RecordTime())
	})
}

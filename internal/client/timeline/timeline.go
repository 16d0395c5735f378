// Package timeline projects record lists into day buckets for display.
// Everything here is pure: the same input always yields the same output.
package timeline

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
)

type Timed interface {
	RecordTime() time.Time
}

// Bucket holds the records of one calendar day. Day is local midnight.
type Bucket[T Timed] struct {
	Day   time.Time
	Items []T
}

// Group buckets records by calendar day in loc. Buckets are ascending by day
// and items are stable-sorted by time inside each bucket. The input is not
// modified.
func Group[T Timed](records []T, loc *time.Location) []Bucket[T] {
	if loc == nil {
		loc = time.Local
	}
	byDay := make(map[time.Time][]T)
	for _, r := range records {
		day := dayOf(r.RecordTime(), loc)
		byDay[day] = append(byDay[day], r)
	}

	out := make([]Bucket[T], 0, len(byDay))
	for day, items := range byDay {
		slices.SortStableFunc(items, func(a, b T) int {
			return a.RecordTime().Compare(b.RecordTime())
		})
		out = append(out, Bucket[T]{Day: day, Items: items})
	}
	slices.SortFunc(out, func(a, b Bucket[T]) int { return a.Day.Compare(b.Day) })
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// HeaderLabel renders a bucket day as "Today", "Yesterday" or "Jan 2, 2006"
// relative to now.
func HeaderLabel(day, now time.Time) string {
	loc := day.Location()
	today := dayOf(now, loc)
	d := dayOf(day, loc)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return d.Format("Jan 2, 2006")
}

// FormatTime renders t as a 12-hour clock time in loc.
func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("03:04 PM")
}

// FormatDuration renders whole seconds as m:ss. Negative and NaN values
// render as 0:00.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Item is one entry of the combined text and voice log.
type Item struct {
	Message   *models.Message
	Recording *models.Recording
}

func (i Item) RecordTime() time.Time {
	if i.Message != nil {
		return i.Message.Timestamp
	}
	if i.Recording != nil {
		return i.Recording.Timestamp
	}
	return time.Time{}
}

func (i Item) ID() string {
	if i.Message != nil {
		return i.Message.ID
	}
	if i.Recording != nil {
		return i.Recording.ID
	}
	return ""
}

func (i Item) Status() models.Status {
	if i.Message != nil {
		return i.Message.RecordStatus()
	}
	if i.Recording != nil {
		return i.Recording.RecordStatus()
	}
	return ""
}

// Interleave wraps messages and recordings into one list of items.
func Interleave(msgs []models.Message, recs []models.Recording) []Item {
	out := make([]Item, 0, len(msgs)+len(recs))
	for i := range msgs {
		out = append(out, Item{Message: &msgs[i]})
	}
	for i := range recs {
		out = append(out, Item{Recording: &recs[i]})
	}
	return out
}

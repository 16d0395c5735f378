package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/dmitrijs2005/medscribe/internal/client/optimistic"
	"github.com/dmitrijs2005/medscribe/internal/client/timeline"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var styles = struct {
	header  lipgloss.Style
	time    lipgloss.Style
	pending lipgloss.Style
	failed  lipgloss.Style
	sent    lipgloss.Style
	dim     lipgloss.Style
	ai      lipgloss.Style
}{
	header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
	time:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	pending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	failed:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	sent:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	dim:     lipgloss.NewStyle().Faint(true),
	ai:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147")),
}

const bodyIndent = 4

func statusBadge(s models.Status) string {
	switch s {
	case models.StatusPending:
		return styles.pending.Render("sending")
	case models.StatusFailed:
		return styles.failed.Render("failed")
	}
	return styles.sent.Render("sent")
}

// renderTimeline prints the combined log of one patient grouped by day.
// canRetry decides whether a failed item gets a retry hint.
func renderTimeline(items []timeline.Item, now time.Time, loc *time.Location, width int, canRetry func(timeline.Item) bool) string {
	if len(items) == 0 {
		return styles.dim.Render("No logs yet.")
	}
	wrap := width - bodyIndent
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	for i, bucket := range timeline.Group(items, loc) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(styles.header.Render("── " + timeline.HeaderLabel(bucket.Day, now) + " ──"))
		b.WriteString("\n")
		for _, it := range bucket.Items {
			b.WriteString(renderItem(it, loc, wrap, canRetry))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderItem(it timeline.Item, loc *time.Location, wrap int, canRetry func(timeline.Item) bool) string {
	var b strings.Builder
	head := fmt.Sprintf("%s  %s  %s", styles.time.Render(timeline.FormatTime(it.RecordTime(), loc)), statusBadge(it.Status()), styles.dim.Render(it.ID()))

	switch {
	case it.Message != nil:
		b.WriteString(head + "\n")
		b.WriteString(indent.String(wordwrap.String(it.Message.Body, wrap), bodyIndent) + "\n")
	case it.Recording != nil:
		r := it.Recording
		b.WriteString(fmt.Sprintf("%s  voice %s\n", head, timeline.FormatDuration(r.Duration)))
		switch {
		case r.Transcript != "":
			b.WriteString(indent.String(wordwrap.String(r.Transcript, wrap), bodyIndent) + "\n")
		case r.RecordStatus() == models.StatusSent:
			b.WriteString(indent.String(styles.dim.Render("transcription in progress"), bodyIndent) + "\n")
		}
		if r.RecordStatus() == models.StatusFailed && r.Error != "" {
			b.WriteString(indent.String(styles.failed.Render(r.Error), bodyIndent) + "\n")
		}
	}

	if it.Status() == models.StatusFailed && canRetry != nil && canRetry(it) {
		b.WriteString(indent.String(styles.dim.Render("retry "+it.ID()), bodyIndent) + "\n")
	}
	return b.String()
}

func renderExchange(x models.AIExchange, loc *time.Location, width int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  %s  %s\n", styles.time.Render(timeline.FormatTime(x.Timestamp, loc)), statusBadge(x.RecordStatus()), styles.ai.Render("Q: ")+x.Query))
	if x.Thought != "" {
		b.WriteString(indent.String(styles.dim.Render(wordwrap.String(x.Thought, width-bodyIndent)), bodyIndent) + "\n")
	}
	if x.Answer != "" {
		b.WriteString(indent.String(wordwrap.String(x.Answer, width-bodyIndent), bodyIndent) + "\n")
	}
	return b.String()
}

// describeEvent turns a settled submission into one line of output.
func describeEvent(e optimistic.Event) string {
	what := "Log"
	if e.Kind == models.KindRecordings {
		what = "Voice log"
	}
	switch {
	case e.Status == models.StatusSent:
		return styles.sent.Render(fmt.Sprintf("%s %s saved.", what, e.ID))
	case e.ErrorCode == common.ErrorCodeNoSpeech:
		return styles.failed.Render(fmt.Sprintf("%s %s: %s Record again.", what, e.ID, e.Message))
	}
	return styles.failed.Render(fmt.Sprintf("%s %s failed: %s Use 'retry %s'.", what, e.ID, e.Message, e.ID))
}

func (a *App) printEvent(e optimistic.Event) {
	printlnFn(describeEvent(e))
}

package calendar

import (
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

// FormatEventsForChat renders events for prompt injection, one bullet line
// per event in input order. Timed events show a weekday/month/day/time
// string, all-day events the bare date.
func FormatEventsForChat(events []*gcal.Event) string {
	if len(events) == 0 {
		return "No upcoming events found."
	}

	var b strings.Builder
	for i, event := range events {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s - %s", event.Summary, formatStart(event.Start))
		if event.Location != "" {
			fmt.Fprintf(&b, " (%s)", event.Location)
		}
	}
	return b.String()
}

func formatStart(start *gcal.EventDateTime) string {
	if start == nil {
		return ""
	}
	if start.DateTime == "" {
		return start.Date
	}
	t, err := time.Parse(time.RFC3339, start.DateTime)
	if err != nil {
		return start.DateTime
	}
	return t.Format("Mon, Jan 2, 3:04 PM")
}

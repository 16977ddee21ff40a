package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"ottoassistant/pkg/models"
	"ottoassistant/pkg/token"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) ValidAccessToken(ctx context.Context, externalID string) (string, error) {
	return s.token, s.err
}

type staticConns struct {
	cred *models.CalendarToken
	err  error
}

func (s staticConns) ByExternalID(externalID string) (*models.CalendarToken, error) {
	return s.cred, s.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestBuildEvent_AllDay(t *testing.T) {
	event, err := buildEvent(EventInput{Title: "X", Date: "2024-03-20"})
	if err != nil {
		t.Fatalf("buildEvent: %v", err)
	}
	if event.Start.Date != "2024-03-20" || event.End.Date != "2024-03-20" {
		t.Errorf("start/end = %q/%q, want 2024-03-20 for both", event.Start.Date, event.End.Date)
	}
	if event.Start.DateTime != "" || event.End.DateTime != "" {
		t.Error("all-day event carries a DateTime")
	}
}

func TestBuildEvent_TimedDuration(t *testing.T) {
	event, err := buildEvent(EventInput{Title: "X", Date: "2024-03-20", Time: "10:00", Duration: 1.5})
	if err != nil {
		t.Fatalf("buildEvent: %v", err)
	}
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	if got := end.Sub(start); got != 90*time.Minute {
		t.Errorf("end - start = %v, want 90m", got)
	}
	if event.Start.TimeZone != eventTimeZone {
		t.Errorf("timezone = %q, want %q", event.Start.TimeZone, eventTimeZone)
	}
}

func TestBuildEvent_DefaultDuration(t *testing.T) {
	event, err := buildEvent(EventInput{Title: "X", Date: "2024-03-20", Time: "09:30"})
	if err != nil {
		t.Fatalf("buildEvent: %v", err)
	}
	start, _ := time.Parse(time.RFC3339, event.Start.DateTime)
	end, _ := time.Parse(time.RFC3339, event.End.DateTime)
	if got := end.Sub(start); got != time.Hour {
		t.Errorf("end - start = %v, want 1h", got)
	}
}

func TestBuildEvent_BadTime(t *testing.T) {
	if _, err := buildEvent(EventInput{Title: "X", Date: "2024-03-20", Time: "25:99"}); err == nil {
		t.Error("buildEvent accepted an invalid time")
	}
}

func TestUpcomingEvents_WindowAndOrder(t *testing.T) {
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("timeMin"); got != now.Format(time.RFC3339) {
			t.Errorf("timeMin = %q, want %q", got, now.Format(time.RFC3339))
		}
		wantMax := now.Add(14 * 24 * time.Hour).Format(time.RFC3339)
		if got := q.Get("timeMax"); got != wantMax {
			t.Errorf("timeMax = %q, want %q", got, wantMax)
		}
		if got := q.Get("singleEvents"); got != "true" {
			t.Errorf("singleEvents = %q, want true", got)
		}
		if got := q.Get("orderBy"); got != "startTime" {
			t.Errorf("orderBy = %q, want startTime", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("authorization = %q, want Bearer access-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gcal.Events{Items: []*gcal.Event{
			{Summary: "Standup"},
			{Summary: "Dentist"},
		}})
	}))
	defer ts.Close()

	c := NewClient(
		staticTokens{token: "access-1"},
		staticConns{cred: &models.CalendarToken{CalendarID: "user@example.com"}},
		testLogger(),
	)
	c.opts = []option.ClientOption{option.WithEndpoint(ts.URL)}
	c.now = func() time.Time { return now }

	events, err := c.UpcomingEvents(context.Background(), "ext-1", 15, 14)
	if err != nil {
		t.Fatalf("UpcomingEvents: %v", err)
	}
	if len(events) != 2 || events[0].Summary != "Standup" || events[1].Summary != "Dentist" {
		t.Errorf("events = %v, want Standup then Dentist", events)
	}
}

func TestUpcomingEvents_TokenUnavailable(t *testing.T) {
	c := NewClient(staticTokens{err: token.ErrNoCredential}, staticConns{}, testLogger())
	if _, err := c.UpcomingEvents(context.Background(), "ext-1", 15, 14); err == nil {
		t.Error("UpcomingEvents succeeded without a token")
	}
}

func TestCreateEvent_InsertsIntoStoredCalendar(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		var event gcal.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.Summary != "Dentist" {
			t.Errorf("summary = %q, want Dentist", event.Summary)
		}
		event.Id = "evt-1"
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(event)
	}))
	defer ts.Close()

	c := NewClient(
		staticTokens{token: "access-1"},
		staticConns{cred: &models.CalendarToken{CalendarID: "user@example.com"}},
		testLogger(),
	)
	c.opts = []option.ClientOption{option.WithEndpoint(ts.URL)}

	created, err := c.CreateEvent(context.Background(), "ext-1", EventInput{Title: "Dentist", Date: "2024-02-15", Time: "14:00"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.Id != "evt-1" {
		t.Errorf("id = %q, want evt-1", created.Id)
	}
	if want := "/calendars/user%40example.com/events"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
}

func TestCreateEvent_ProviderFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"insufficient permissions"}}`)
	}))
	defer ts.Close()

	c := NewClient(
		staticTokens{token: "access-1"},
		staticConns{cred: &models.CalendarToken{CalendarID: "user@example.com"}},
		testLogger(),
	)
	c.opts = []option.ClientOption{option.WithEndpoint(ts.URL)}

	if _, err := c.CreateEvent(context.Background(), "ext-1", EventInput{Title: "X", Date: "2024-02-15"}); err == nil {
		t.Error("CreateEvent succeeded, want provider error")
	}
}

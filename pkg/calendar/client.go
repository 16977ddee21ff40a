package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"ottoassistant/pkg/models"
)

// eventTimeZone is the fixed zone timed events are created in.
const eventTimeZone = "America/Los_Angeles"

// TokenSource yields a valid access token for a user, refreshing when
// needed.
type TokenSource interface {
	ValidAccessToken(ctx context.Context, externalID string) (string, error)
}

// ConnectionSource resolves the stored calendar credential, used here for
// the calendar id.
type ConnectionSource interface {
	ByExternalID(externalID string) (*models.CalendarToken, error)
}

// EventInput is the shape the command grammar produces. Time is optional;
// without it the event is all-day. Duration is in hours, 0 meaning the
// 1 hour default.
type EventInput struct {
	Title       string
	Date        string
	Time        string
	Duration    float64
	Location    string
	Description string
}

// Client is a thin wrapper over the Google Calendar API for one read and
// one write operation.
type Client struct {
	tokens TokenSource
	conns  ConnectionSource
	log    *logrus.Logger
	// opts lets tests point the SDK at a fake endpoint.
	opts []option.ClientOption
	now  func() time.Time
}

func NewClient(tokens TokenSource, conns ConnectionSource, log *logrus.Logger) *Client {
	return &Client{
		tokens: tokens,
		conns:  conns,
		log:    log,
		now:    time.Now,
	}
}

func (c *Client) service(ctx context.Context, externalID string) (*gcal.Service, string, error) {
	accessToken, err := c.tokens.ValidAccessToken(ctx, externalID)
	if err != nil {
		return nil, "", err
	}
	cred, err := c.conns.ByExternalID(externalID)
	if err != nil {
		return nil, "", err
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(src)}, c.opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("create calendar service: %w", err)
	}
	return svc, cred.CalendarID, nil
}

// UpcomingEvents lists events in [now, now+daysAhead days], recurring
// events expanded, ordered by start time.
func (c *Client) UpcomingEvents(ctx context.Context, externalID string, maxResults int64, daysAhead int) ([]*gcal.Event, error) {
	svc, calendarID, err := c.service(ctx, externalID)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	res, err := svc.Events.List(calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(time.Duration(daysAhead) * 24 * time.Hour).Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return res.Items, nil
}

// CreateEvent inserts one event into the user's connected calendar. There
// is no idempotency key: duplicate submissions produce duplicate entries.
func (c *Client) CreateEvent(ctx context.Context, externalID string, in EventInput) (*gcal.Event, error) {
	svc, calendarID, err := c.service(ctx, externalID)
	if err != nil {
		return nil, err
	}

	event, err := buildEvent(in)
	if err != nil {
		return nil, err
	}
	created, err := svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	c.log.WithFields(logrus.Fields{"calendar": calendarID, "event": created.Id}).Info("event created")
	return created, nil
}

// buildEvent translates an EventInput into the wire shape: a timed event
// when Time is given (end = start + duration hours), otherwise a single-day
// all-day event.
func buildEvent(in EventInput) (*gcal.Event, error) {
	event := &gcal.Event{
		Summary:     in.Title,
		Location:    in.Location,
		Description: in.Description,
	}

	if in.Time == "" {
		event.Start = &gcal.EventDateTime{Date: in.Date}
		event.End = &gcal.EventDateTime{Date: in.Date}
		return event, nil
	}

	loc, err := time.LoadLocation(eventTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	start, err := time.ParseInLocation("2006-01-02T15:04", in.Date+"T"+in.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("parse event start: %w", err)
	}
	duration := in.Duration
	if duration <= 0 {
		duration = 1
	}
	end := start.Add(time.Duration(duration * float64(time.Hour)))

	event.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: eventTimeZone}
	event.End = &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: eventTimeZone}
	return event, nil
}

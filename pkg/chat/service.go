package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"

	"ottoassistant/pkg/auth"
	"ottoassistant/pkg/calendar"
	"ottoassistant/pkg/command"
	"ottoassistant/pkg/llm"
	"ottoassistant/pkg/models"
	"ottoassistant/pkg/token"
)

const (
	maxPromptEvents = 15
	lookAheadDays   = 14
)

// ConnectionSource reports whether a user has a calendar connection.
type ConnectionSource interface {
	ByExternalID(externalID string) (*models.CalendarToken, error)
}

// CalendarAPI is the slice of the calendar client the orchestrator uses.
type CalendarAPI interface {
	UpcomingEvents(ctx context.Context, externalID string, maxResults int64, daysAhead int) ([]*gcal.Event, error)
	CreateEvent(ctx context.Context, externalID string, in calendar.EventInput) (*gcal.Event, error)
}

// Service runs one chat turn: calendar state into the prompt, LLM call,
// command extraction, calendar writes, cleaned reply out. The server is
// stateless; history travels with every request.
type Service struct {
	conns ConnectionSource
	cal   CalendarAPI
	llm   llm.Completer
	log   *logrus.Logger
}

func NewService(conns ConnectionSource, cal CalendarAPI, completer llm.Completer, log *logrus.Logger) *Service {
	return &Service{conns: conns, cal: cal, llm: completer, log: log}
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
}

// HandleChat is the POST /chat handler.
func (s *Service) HandleChat(c *fiber.Ctx) error {
	externalID := auth.ExternalID(c)
	if externalID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req chatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Messages == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "messages are required"})
	}

	ctx := c.Context()
	connected := s.connected(externalID)

	eventsText := "No upcoming events found."
	if connected {
		events, err := s.cal.UpcomingEvents(ctx, externalID, maxPromptEvents, lookAheadDays)
		if err != nil {
			// Degrade to "no events" rather than failing the turn.
			s.log.WithError(err).WithField("user", externalID).Warn("fetching events for prompt failed")
		} else {
			eventsText = calendar.FormatEventsForChat(events)
		}
	}

	reply, err := s.llm.Complete(ctx, systemPrompt(auth.UserName(c), connected, eventsText), req.Messages)
	if err != nil {
		s.log.WithError(err).Error("llm completion failed")
		return fiber.ErrInternalServerError
	}

	cleaned, cmds := command.Parse(reply)

	var added []string
	for _, cmd := range cmds {
		if !cmd.Complete() || !connected {
			// Stripped from the reply but never written.
			continue
		}
		_, err := s.cal.CreateEvent(ctx, externalID, calendar.EventInput{
			Title:       cmd.Title,
			Date:        cmd.Date,
			Time:        cmd.Time,
			Duration:    cmd.Duration,
			Location:    cmd.Location,
			Description: cmd.Description,
		})
		if err != nil {
			// Best effort, no retry: a failed create just drops out
			// of the confirmation line.
			s.log.WithError(err).WithField("title", cmd.Title).Warn("event create failed")
			continue
		}
		added = append(added, cmd.Title)
	}

	if len(added) > 0 {
		cleaned += "\n\nAdded to your calendar: " + strings.Join(added, ", ")
	}
	return c.JSON(fiber.Map{"content": cleaned})
}

// HandleStatus is the GET /calendar/status handler.
func (s *Service) HandleStatus(c *fiber.Ctx) error {
	externalID := auth.ExternalID(c)
	if externalID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	cred, err := s.conns.ByExternalID(externalID)
	if err != nil {
		if !errors.Is(err, token.ErrNoCredential) {
			s.log.WithError(err).Warn("calendar status lookup failed")
		}
		return c.JSON(fiber.Map{"connected": false, "calendarId": nil})
	}
	return c.JSON(fiber.Map{"connected": true, "calendarId": cred.CalendarID})
}

func (s *Service) connected(externalID string) bool {
	_, err := s.conns.ByExternalID(externalID)
	return err == nil
}

package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"ottoassistant/pkg/auth"
	"ottoassistant/pkg/calendar"
	"ottoassistant/pkg/chat"
	"ottoassistant/pkg/config"
	"ottoassistant/pkg/database"
	"ottoassistant/pkg/llm"
	"ottoassistant/pkg/token"
)

func main() {
	log := logrus.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	tokens := token.NewStore(db)
	manager := token.NewManager(cfg, tokens, log)
	calClient := calendar.NewClient(manager, tokens, log)
	completer := llm.NewClient(cfg, log)
	flow := auth.NewGoogleFlow(cfg, db, tokens, log)
	chatSvc := chat.NewService(tokens, calClient, completer, log)

	app := fiber.New(fiber.Config{
		// Internal errors surface as a generic 500 with no detail.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.WithError(err).Error("request failed")
				return c.Status(code).JSON(fiber.Map{"error": "internal server error"})
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())

	requireAuth := auth.Middleware(cfg.JWTSecret, log)

	app.Get("/auth/google", requireAuth, flow.Initiate)
	// Google redirects here without a bearer token; identity rides in state.
	app.Get("/auth/google/callback", flow.Callback)
	app.Get("/calendar/status", requireAuth, chatSvc.HandleStatus)
	app.Post("/chat", requireAuth, chatSvc.HandleChat)

	log.Fatal(app.Listen(cfg.ListenAddr))
}

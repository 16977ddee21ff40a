package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"gorm.io/gorm"

	"ottoassistant/pkg/config"
	"ottoassistant/pkg/models"
	"ottoassistant/pkg/token"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleFlow implements the two-step authorization-code grant that connects
// a user's Google Calendar.
type GoogleFlow struct {
	oauth       *oauth2.Config
	db          *gorm.DB
	tokens      *token.Store
	appURL      string
	userInfoURL string
	client      *http.Client
	log         *logrus.Logger
}

func NewGoogleFlow(cfg config.Config, db *gorm.DB, tokens *token.Store, log *logrus.Logger) *GoogleFlow {
	return &GoogleFlow{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes: []string{
				calendar.CalendarScope,
				calendar.CalendarEventsScope,
				"https://www.googleapis.com/auth/userinfo.email",
			},
			Endpoint: google.Endpoint,
		},
		db:          db,
		tokens:      tokens,
		appURL:      cfg.AppURL,
		userInfoURL: userInfoURL,
		client:      http.DefaultClient,
		log:         log,
	}
}

// Initiate redirects the authenticated caller to Google's consent screen.
// The caller's external auth id rides in the state parameter: it correlates
// the callback and names the identity the tokens get bound to.
func (f *GoogleFlow) Initiate(c *fiber.Ctx) error {
	externalID := ExternalID(c)
	if externalID == "" {
		return unauthorized(c)
	}
	if f.oauth.ClientID == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Google OAuth not configured"})
	}

	// prompt=consent forces a refresh token even on re-consent.
	url := f.oauth.AuthCodeURL(externalID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return c.Redirect(url)
}

// Callback finishes the grant: code exchange, profile fetch, lazy user
// creation, credential upsert. Every failure redirects to the dashboard
// with an error code; the user never sees a raw error.
func (f *GoogleFlow) Callback(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.WithField("panic", r).Error("google oauth callback panicked")
			err = f.redirectError(c, "callback_failed")
		}
	}()

	if c.Query("error") != "" {
		return f.redirectError(c, "google_auth_denied")
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return f.redirectError(c, "missing_params")
	}

	tok, err := f.oauth.Exchange(c.Context(), code)
	if err != nil {
		f.log.WithError(err).Warn("google token exchange failed")
		return f.redirectError(c, "token_exchange_failed")
	}

	email, err := f.fetchEmail(c.Context(), tok.AccessToken)
	if err != nil {
		f.log.WithError(err).Error("google profile fetch failed")
		return f.redirectError(c, "callback_failed")
	}

	user := models.User{ExternalID: state, Email: email}
	if err := f.db.Where(models.User{ExternalID: state}).FirstOrCreate(&user).Error; err != nil {
		f.log.WithError(err).Error("resolving user failed")
		return f.redirectError(c, "callback_failed")
	}

	// tok.Expiry is now + the provider-reported lifetime. RefreshToken is
	// empty when the provider omitted one on reconnect.
	if err := f.tokens.Upsert(user.ID, tok.AccessToken, tok.RefreshToken, tok.Expiry, email); err != nil {
		f.log.WithError(err).Error("storing calendar credential failed")
		return f.redirectError(c, "callback_failed")
	}

	f.log.WithFields(logrus.Fields{"user": user.ID, "calendar": email}).Info("calendar connected")
	return c.Redirect(f.appURL + "/dashboard?success=calendar_connected")
}

func (f *GoogleFlow) redirectError(c *fiber.Ctx, code string) error {
	return c.Redirect(f.appURL + "/dashboard?error=" + code)
}

func (f *GoogleFlow) fetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response missing email")
	}
	return info.Email, nil
}

package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"

	"ottoassistant/pkg/config"
	"ottoassistant/pkg/models"
)

// expirySkew is how close to expiry a stored access token is still treated
// as usable. Tokens inside this window are refreshed proactively rather
// than risking a rejected calendar call.
const expirySkew = 5 * time.Minute

// CredentialSource is the slice of Store the manager needs.
type CredentialSource interface {
	ByExternalID(externalID string) (*models.CalendarToken, error)
	UpdateAccess(id uint, accessToken string, expiry time.Time) error
}

// Manager hands out valid access tokens, refreshing against the provider's
// token endpoint when the stored one is expired or about to expire.
type Manager struct {
	creds        CredentialSource
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	log          *logrus.Logger
	now          func() time.Time
}

func NewManager(cfg config.Config, creds CredentialSource, log *logrus.Logger) *Manager {
	return &Manager{
		creds:        creds,
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		tokenURL:     google.Endpoint.TokenURL,
		client:       http.DefaultClient,
		log:          log,
		now:          time.Now,
	}
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// ValidAccessToken returns an access token usable for at least the skew
// window. A stored token that is still fresh is returned without any
// network call. On any refresh failure the stored credential is left
// unmodified and an error is returned; it never panics.
func (m *Manager) ValidAccessToken(ctx context.Context, externalID string) (string, error) {
	cred, err := m.creds.ByExternalID(externalID)
	if err != nil {
		return "", err
	}
	if cred.Expiry.After(m.now().Add(expirySkew)) {
		return cred.AccessToken, nil
	}

	res, err := m.refresh(ctx, cred.RefreshToken)
	if err != nil {
		m.log.WithError(err).WithField("user", cred.UserID).Warn("access token refresh failed")
		return "", err
	}

	expiry := m.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	if err := m.creds.UpdateAccess(cred.ID, res.AccessToken, expiry); err != nil {
		m.log.WithError(err).WithField("user", cred.UserID).Warn("persisting refreshed token failed")
		return "", err
	}
	return res.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (*refreshResponse, error) {
	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("token refresh rejected: %s %s", body.Error, body.ErrorDesc)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &body, nil
}

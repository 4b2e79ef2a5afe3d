package export

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SheetsScope grants read and write access to the user's spreadsheets.
const SheetsScope = "https://www.googleapis.com/auth/spreadsheets"

// GoogleOAuthConfig returns the client used to refresh Sheets tokens.
func GoogleOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{SheetsScope},
		Endpoint:     google.Endpoint,
	}
}

// TokenSession wraps one decrypted token for the duration of an export.
// The oauth2 transport refreshes it when it has expired.
type TokenSession struct {
	initial *oauth2.Token
	source  oauth2.TokenSource
}

func NewTokenSession(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) *TokenSession {
	return &TokenSession{
		initial: token,
		source:  cfg.TokenSource(ctx, token),
	}
}

func (s *TokenSession) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, s.source)
}

// Refreshed returns the current token and whether it differs from the one
// the session started with.
func (s *TokenSession) Refreshed() (*oauth2.Token, bool, error) {
	current, err := s.source.Token()
	if err != nil {
		return nil, false, err
	}
	changed := current.AccessToken != s.initial.AccessToken || current.RefreshToken != s.initial.RefreshToken
	return current, changed, nil
}

func DecodeToken(raw []byte) (*oauth2.Token, error) {
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("invalid oauth token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("invalid oauth token: no access or refresh token")
	}
	return &token, nil
}

func EncodeToken(token *oauth2.Token) ([]byte, error) {
	return json.Marshal(token)
}

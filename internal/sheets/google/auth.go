package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials selects how the Sheets service authenticates. A service
// account takes precedence over an OAuth client and token pair.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

// NewService builds an authenticated Sheets client.
func NewService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	opt, err := creds.clientOption(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c Credentials) clientOption(ctx context.Context) (goption.ClientOption, error) {
	sa, err := inlineOrFile(c.ServiceAccountJSON, c.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if sa != nil {
		return goption.WithCredentialsJSON(sa), nil
	}

	token, err := inlineOrFile(c.OAuthTokenJSON, c.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if token == nil {
		return nil, errors.New("missing Google credentials: set a service account or an OAuth client and token")
	}
	cfg, err := c.OAuthConfig()
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(token, &tok); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	return goption.WithTokenSource(cfg.TokenSource(ctx, &tok)), nil
}

// OAuthConfig parses the OAuth client with the spreadsheets scope.
func (c Credentials) OAuthConfig() (*oauth2.Config, error) {
	client, err := inlineOrFile(c.OAuthClientJSON, c.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if client == nil {
		return nil, errors.New("missing Google credentials: set an OAuth client")
	}
	cfg, err := googleoauth.ConfigFromJSON(client, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// SaveToken writes tok as JSON, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// inlineOrFile returns inline when set, else the file contents, else nil.
func inlineOrFile(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// Package googleauth builds client options for Google APIs from service
// account credentials held in configuration.
package googleauth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes needed by the calendar and audit sheet clients.
var Scopes = []string{gcal.CalendarScope, sheets.SpreadsheetsScope}

// Credentials identify a service account.
type Credentials struct {
	ClientEmail string
	PrivateKey  string
	ProjectID   string
}

// Validate reports missing fields.
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ClientEmail) == "" {
		missing = append(missing, "client email")
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		missing = append(missing, "private key")
	}
	if len(missing) > 0 {
		return errors.New("googleauth: missing " + strings.Join(missing, ", "))
	}
	return nil
}

// JWTConfig returns the two-legged OAuth config for the service account.
func JWTConfig(creds Credentials, scopes ...string) (*jwt.Config, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = Scopes
	}
	return &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(creds.PrivateKey),
		Scopes:     scopes,
		TokenURL:   google.JWTTokenURL,
	}, nil
}

// ClientOptions returns options that authenticate Google API clients as the
// service account.
func ClientOptions(ctx context.Context, creds Credentials) ([]option.ClientOption, error) {
	cfg, err := JWTConfig(creds)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithTokenSource(cfg.TokenSource(ctx))}
	if creds.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(creds.ProjectID))
	}
	return opts, nil
}

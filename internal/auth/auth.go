// Package auth holds the CLI's persisted OAuth credentials and hands out
// access tokens to the components that call the Bkper API.
//
// An Authorizer is constructed once at process start and injected into
// everything that needs authenticated access. There is deliberately no
// package-level singleton.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Authorizer exchanges stored credentials for fresh access tokens.
type Authorizer struct {
	store *Store

	mu     sync.Mutex
	creds  *Credentials
	source oauth2.TokenSource
}

func NewAuthorizer(store *Store) *Authorizer {
	return &Authorizer{store: store}
}

// LoggedIn reports whether usable credentials are stored.
func (a *Authorizer) LoggedIn() bool {
	_, err := a.credentials()
	return err == nil
}

// UserID returns the stored user id, or the empty string when logged out.
func (a *Authorizer) UserID() string {
	creds, err := a.credentials()
	if err != nil {
		return ""
	}
	return creds.UserID
}

// OAuthToken returns a valid access token, refreshing through the token
// endpoint when the cached one has expired.
func (a *Authorizer) OAuthToken(ctx context.Context) (string, error) {
	creds, err := a.credentials()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	if a.source == nil {
		cfg := oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint:     googleEndpoint,
		}
		// ReuseTokenSource caches the access token until expiry.
		a.source = oauth2.ReuseTokenSource(nil, cfg.TokenSource(context.WithoutCancel(ctx), &oauth2.Token{RefreshToken: creds.RefreshToken}))
	}
	source := a.source
	a.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("token refresh rejected, run 'bkper login' again: %w", err)
		}
		return "", fmt.Errorf("could not refresh access token: %w", err)
	}
	return token.AccessToken, nil
}

func (a *Authorizer) credentials() (Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.creds != nil {
		return *a.creds, nil
	}
	creds, err := a.store.Load()
	if err != nil {
		return Credentials{}, err
	}
	a.creds = &creds
	return creds, nil
}

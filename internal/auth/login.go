package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/bkper/bkper-cli/internal/log"
)

// Default OAuth client for the CLI. The secret is not confidential for an
// installed application; PKCE protects the exchange.
const (
	defaultClientID = "bkper-cli.apps.googleusercontent.com"
	loginTimeout    = time.Minute * 5
)

var loginScopes = []string{"email", "https://www.googleapis.com/auth/userinfo.profile"}

// Login runs the authorization code flow with PKCE against a loopback
// redirect and persists the resulting credentials.
func Login(ctx context.Context, store *Store, clientID, clientSecret string) error {
	logger := log.FromContext(ctx)
	if clientID == "" {
		clientID = defaultClientID
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("could not open loopback listener: %w", err)
	}
	defer listener.Close()

	cfg := oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleEndpoint,
		RedirectURL:  fmt.Sprintf("http://%s/callback", listener.Addr()),
		Scopes:       loginScopes,
	}

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier()
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	logger.Infof("Open the following URL in your browser to log in:")
	logger.Infof("  %s", url)

	codes := make(chan string, 1)
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" || r.URL.Query().Get("state") != state {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, "Logged in. You can close this window and return to the terminal.")
		codes <- r.URL.Query().Get("code")
	})}
	go func() { _ = server.Serve(listener) }()
	defer server.Close()

	var code string
	select {
	case code = <-codes:
	case <-time.After(loginTimeout):
		return fmt.Errorf("timed out waiting for browser login")
	case <-ctx.Done():
		return ctx.Err()
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("authorization server returned no refresh token")
	}

	creds := Credentials{
		UserID:       userIDFromToken(token),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: token.RefreshToken,
	}
	if err := store.Save(creds); err != nil {
		return fmt.Errorf("could not persist credentials: %w", err)
	}
	logger.Infof("Logged in")
	return nil
}

func userIDFromToken(token *oauth2.Token) string {
	// The id_token carries the subject claim when the scope includes it.
	idToken, ok := token.Extra("id_token").(string)
	if !ok {
		return ""
	}
	claims := struct {
		Sub string `json:"sub"`
	}{}
	if payload, err := decodeJWTPayload(idToken); err == nil {
		_ = json.Unmarshal(payload, &claims)
	}
	return claims.Sub
}

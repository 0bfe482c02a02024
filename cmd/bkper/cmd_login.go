package main

import (
	"context"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/log"
)

// Installed-app OAuth client. The secret is not confidential for this
// client type, it only identifies the CLI to the consent screen.
const (
	defaultOAuthClientID     = "603969107701-k01g2vrtv4qtbsbvfepmpm3bnbeqiben.apps.googleusercontent.com"
	defaultOAuthClientSecret = "x1DbJAxr0DaUq0vyR2NY8e0X"
)

type loginCmd struct {
	ClientID     string `help:"OAuth client id." env:"BKPER_CLIENT_ID" default:"${oauth_client_id}"`
	ClientSecret string `help:"OAuth client secret." env:"BKPER_CLIENT_SECRET" default:"${oauth_client_secret}"`
}

func (l *loginCmd) Run(ctx context.Context, store *auth.Store) error {
	if err := auth.Login(ctx, store, l.ClientID, l.ClientSecret); err != nil {
		return err
	}
	log.FromContext(ctx).Infof("Logged in.")
	return nil
}

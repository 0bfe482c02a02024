package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/bkper"
	"github.com/bkper/bkper-cli/internal/log"
)

var version = "dev"

var cli struct {
	Version   kong.VersionFlag `help:"Show version information."`
	LogConfig log.Config       `embed:"" prefix:"log-" group:"Logging:"`

	Login       loginCmd       `cmd:"" help:"Authenticate with the Bkper platform."`
	Logout      logoutCmd      `cmd:"" help:"Remove stored credentials."`
	Dev         devCmd         `cmd:"" help:"Run an app locally with live reload."`
	Deploy      deployCmd      `cmd:"" help:"Deploy an app's event handler."`
	Transaction transactionCmd `cmd:"" help:"Operate on transactions."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Description(`Bkper - develop and operate apps for the Bkper accounting platform`),
		kong.UsageOnError(),
		kong.Vars{
			"version":             version,
			"oauth_client_id":     defaultOAuthClientID,
			"oauth_client_secret": defaultOAuthClientSecret,
		},
	)

	// Set the log level for child processes.
	os.Setenv("LOG_LEVEL", cli.LogConfig.Level.String())

	ctx, cancel := context.WithCancel(context.Background())

	logger := log.Configure(os.Stderr, cli.LogConfig)
	ctx = log.ContextWithLogger(ctx, logger)

	// Handle signals.
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigch
		logger.Infof("Terminating with signal %s", sig)
		cancel()
	}()

	store := auth.NewStore()
	authorizer := auth.NewAuthorizer(store)

	kctx.Bind(store)
	kctx.Bind(authorizer)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.BindToProvider(func() (*bkper.Client, error) {
		return bkper.NewClient(authorizer), nil
	})
	kctx.FatalIfErrorf(err)

	err = kctx.Run(ctx)
	kctx.FatalIfErrorf(err)
}

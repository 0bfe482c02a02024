package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/bkper"
	"github.com/bkper/bkper-cli/internal/deployment"
	"github.com/bkper/bkper-cli/internal/dev"
	"github.com/bkper/bkper-cli/internal/log"
)

type deployCmd struct {
	Dir string `arg:"" help:"App directory containing the bkper config." type:"existingdir" default:"." optional:""`
	Env string `help:"Target environment." enum:"dev,prod" default:"dev"`
}

func (d *deployCmd) Run(ctx context.Context, authorizer *auth.Authorizer, client *bkper.Client) error {
	if !authorizer.LoggedIn() {
		return fmt.Errorf("not logged in, run \"bkper login\" first")
	}
	cfg, err := deployment.Load(d.Dir)
	if err != nil {
		return err
	}
	if cfg.Deployment.Events == nil {
		return fmt.Errorf("app %q declares no events handler", cfg.Id)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	bundler, err := dev.NewESBuildBundler()
	if err != nil {
		return err
	}
	outFile := filepath.Join(cfg.Dir, ".bkper", "build", "events.bundle.js")
	if err := bundler.Build(ctx, cfg.EventsEntryPoint(), outFile); err != nil {
		return err
	}
	if err := client.DeployBundle(ctx, cfg.Id, "events", d.Env, outFile); err != nil {
		return err
	}
	log.FromContext(ctx).Infof("Deployed events handler for %s to %s", cfg.Name, d.Env)
	return nil
}

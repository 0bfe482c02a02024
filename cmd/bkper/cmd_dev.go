package main

import (
	"context"
	"time"

	"github.com/bkper/bkper-cli/internal/auth"
	"github.com/bkper/bkper-cli/internal/bkper"
	"github.com/bkper/bkper-cli/internal/deployment"
	"github.com/bkper/bkper-cli/internal/dev"
)

type devCmd struct {
	Dir        string        `arg:"" help:"App directory containing the bkper config." type:"existingdir" default:"." optional:""`
	Port       int           `help:"Port for the client dev server." default:"5173"`
	WorkerPort int           `help:"Port for the web handler runtime." default:"8787"`
	Watch      time.Duration `help:"Poll source directories at this frequency." default:"500ms"`
	Tunnel     bool          `help:"Expose the client through a public tunnel." default:"false"`
	Only       []string      `help:"Limit the session to these components." enum:"web,client,events" optional:""`
}

func (d *devCmd) Run(ctx context.Context, authorizer *auth.Authorizer, client *bkper.Client) error {
	cfg, err := deployment.Load(d.Dir)
	if err != nil {
		return err
	}
	bundler, err := dev.NewESBuildBundler()
	if err != nil {
		return err
	}
	var launcher dev.RuntimeLauncher
	if cfg.Deployment.Web != nil {
		launcher, err = dev.NewMiniflareLauncher()
		if err != nil {
			return err
		}
	}
	session := &dev.Session{
		Config:      cfg,
		Bridge:      auth.BridgeHandler(authorizer),
		Bundler:     bundler,
		Launcher:    launcher,
		Deployer:    client,
		Login:       authorizer,
		ClientPort:  d.Port,
		WorkerPort:  d.WorkerPort,
		WatchPeriod: d.Watch,
		Tunnel:      d.Tunnel,
		Only:        d.Only,
	}
	return session.Run(ctx)
}

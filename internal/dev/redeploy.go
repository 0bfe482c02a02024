package dev

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"github.com/bkper/bkper-cli/internal/log"
)

// Deployer pushes a built bundle to the platform.
type Deployer interface {
	DeployBundle(ctx context.Context, appID, handlerType, environment, bundlePath string) error
}

// LoginChecker reports whether credentials are available for remote calls.
type LoginChecker interface {
	LoggedIn() bool
}

const redeployAttempts = 3

// RedeployTask rebuilds the events handler and pushes it to the remote
// development environment. Pushes are coalesced so a burst of file
// changes results in at most one in-flight deploy and one rerun.
type RedeployTask struct {
	appID       string
	environment string
	handlerType string
	entryPoint  string
	outputPath  string
	bundler     Bundler
	deployer    Deployer
	login       LoginChecker
	coalescer   *Coalescer
}

func NewRedeployTask(appID, environment, entryPoint, outputPath string, bundler Bundler, deployer Deployer, login LoginChecker) *RedeployTask {
	t := &RedeployTask{
		appID:       appID,
		environment: environment,
		handlerType: "events",
		entryPoint:  entryPoint,
		outputPath:  outputPath,
		bundler:     bundler,
		deployer:    deployer,
		login:       login,
	}
	t.coalescer = NewCoalescer("redeploy", t.run)
	return t
}

// Trigger schedules a rebuild and push. Safe to call from any goroutine.
func (t *RedeployTask) Trigger(ctx context.Context) {
	t.coalescer.Trigger(ctx)
}

// Wait blocks until no deploy is running or pending.
func (t *RedeployTask) Wait(ctx context.Context) error {
	return t.coalescer.Wait(ctx)
}

func (t *RedeployTask) run(ctx context.Context) error {
	logger := log.FromContext(ctx).Scope("redeploy")
	if !t.login.LoggedIn() {
		logger.Warnf("Not logged in, skipping remote deploy. Run \"bkper login\" to enable live event handling.")
		return nil
	}
	if err := t.bundler.Build(ctx, t.entryPoint, t.outputPath); err != nil {
		return fmt.Errorf("events build failed: %w", err)
	}
	retry := &backoff.Backoff{Min: time.Millisecond * 200, Max: time.Second * 2}
	var err error
	for attempt := 0; attempt < redeployAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry.Duration()):
			}
		}
		err = t.deployer.DeployBundle(ctx, t.appID, t.handlerType, t.environment, t.outputPath)
		if err == nil {
			logger.Infof("Events handler deployed to %s", t.environment)
			return nil
		}
		logger.Warnf("Deploy attempt %d failed: %s", attempt+1, err)
	}
	return fmt.Errorf("events deploy failed after %d attempts: %w", redeployAttempts, err)
}

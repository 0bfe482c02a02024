package dev

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/bkper/bkper-cli/internal/log"
)

type recordingDeployer struct {
	mu      sync.Mutex
	calls   []string
	failing int
}

func (d *recordingDeployer) DeployBundle(ctx context.Context, appID, handlerType, environment, bundlePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, appID+"/"+handlerType+"/"+environment)
	if d.failing > 0 {
		d.failing--
		return errors.New("remote unavailable")
	}
	return nil
}

func (d *recordingDeployer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *recordingDeployer) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type loggedIn bool

func (l loggedIn) LoggedIn() bool { return bool(l) }

func TestRedeployPushesBundle(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{}
	deployer := &recordingDeployer{}
	task := NewRedeployTask("app-1", "dev", "src/events.ts", t.TempDir()+"/events.js", bundler, deployer, loggedIn(true))

	task.Trigger(ctx)
	assert.NoError(t, task.Wait(ctx))

	assert.Equal(t, 1, bundler.count())
	assert.Equal(t, []string{"app-1/events/dev"}, deployer.calls)
}

func TestRedeployRetriesTransientFailures(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{}
	deployer := &recordingDeployer{failing: 2}
	task := NewRedeployTask("app-1", "dev", "src/events.ts", t.TempDir()+"/events.js", bundler, deployer, loggedIn(true))

	task.Trigger(ctx)
	assert.NoError(t, task.Wait(ctx))

	assert.Equal(t, 3, deployer.callCount())
}

func TestRedeploySkipsWhenLoggedOut(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{}
	deployer := &recordingDeployer{}
	task := NewRedeployTask("app-1", "dev", "src/events.ts", t.TempDir()+"/events.js", bundler, deployer, loggedIn(false))

	task.Trigger(ctx)
	assert.NoError(t, task.Wait(ctx))

	assert.Equal(t, 0, bundler.count())
	assert.Equal(t, 0, deployer.callCount())
}

func TestRedeployCoalescesBursts(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bundler := &fakeBundler{onBuild: func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}}
	deployer := &recordingDeployer{}
	task := NewRedeployTask("app-1", "dev", "src/events.ts", t.TempDir()+"/events.js", bundler, deployer, loggedIn(true))

	task.Trigger(ctx)
	<-started
	for i := 0; i < 4; i++ {
		task.Trigger(ctx)
	}
	close(release)
	assert.NoError(t, task.Wait(ctx))

	// One in-flight deploy plus one coalesced rerun.
	assert.Equal(t, 2, deployer.callCount())
}

func TestSharedTriggerCascades(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	var order []string
	var mu sync.Mutex
	step := func(name string, err error) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return err
		}
	}
	trigger := NewSharedTrigger(step("build", nil), step("worker", errors.New("boom")), step("redeploy", nil))
	trigger.Trigger(ctx)
	assert.NoError(t, trigger.Wait(ctx))
	assert.Equal(t, []string{"build", "worker", "redeploy"}, order)
}

func TestSharedTriggerSkipsCascadeOnBuildFailure(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	var cascaded bool
	trigger := NewSharedTrigger(
		func(ctx context.Context) error { return errors.New("syntax error") },
		func(ctx context.Context) error { cascaded = true; return nil },
	)
	trigger.Trigger(ctx)
	assert.NoError(t, trigger.Wait(ctx))
	assert.False(t, cascaded)
}

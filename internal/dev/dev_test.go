package dev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/bkper/bkper-cli/internal/deployment"
	"github.com/bkper/bkper-cli/internal/log"
)

// failLauncher fails the test if the session tries to boot a web runtime.
type failLauncher struct{ t *testing.T }

func (f *failLauncher) Launch(ctx context.Context, opts RuntimeOptions) (RuntimeInstance, error) {
	f.t.Fatal("runtime launched for a config with no web handler")
	return nil, nil
}

func writeEventsApp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0750))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "src", "events.ts"), []byte("export default {}\n"), 0600))
	config := `
id: acct-sync
name: Account Sync
deployment:
  events:
    main: src/events.ts
`
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bkper.yaml"), []byte(config), 0600))
	return dir
}

func TestSessionEventsOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(log.ContextWithNewDefaultLogger(context.Background()))
	defer cancel()

	dir := writeEventsApp(t)
	cfg, err := deployment.Load(dir)
	assert.NoError(t, err)

	bundler := &fakeBundler{content: "bundle"}
	deployer := &recordingDeployer{}
	session := &Session{
		Config:      cfg,
		Bundler:     bundler,
		Launcher:    &failLauncher{t: t},
		Deployer:    deployer,
		Login:       loggedIn(true),
		WorkerPort:  0,
		ClientPort:  0,
		WatchPeriod: time.Millisecond * 100,
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	// The session deploys the events handler once at startup.
	deadline := time.After(time.Second * 10)
	for deployer.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial events deploy never happened")
		case err := <-done:
			t.Fatalf("session exited early: %v", err)
		case <-time.After(time.Millisecond * 20):
		}
	}
	assert.Equal(t, []string{"acct-sync/events/dev"}, deployer.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 10):
		t.Fatal("session did not shut down")
	}
}

func TestSessionRejectsPrebuiltConfig(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	dir := t.TempDir()
	config := `
id: legacy
name: Legacy
deployment:
  events:
    main: dist/events.js
`
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bkper.json"), []byte(config), 0600))
	cfg, err := deployment.Load(dir)
	assert.NoError(t, err)

	session := &Session{Config: cfg, Bundler: &fakeBundler{}, Deployer: &recordingDeployer{}, Login: loggedIn(true)}
	err = session.Run(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "source format")
}

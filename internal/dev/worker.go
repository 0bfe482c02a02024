package dev

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bkper/bkper-cli/internal/log"
)

// RuntimeOptions configure a simulated edge runtime instance.
type RuntimeOptions struct {
	// Bundle is the path of the built module bundle to serve.
	Bundle string
	Port   int
	// Vars become plain-text environment bindings inside the runtime.
	Vars              map[string]string
	CompatibilityDate string
	// PersistDir backs local KV storage so state survives reloads and
	// restarts.
	PersistDir string
}

// RuntimeLauncher boots a simulated edge runtime serving a bundle.
type RuntimeLauncher interface {
	Launch(ctx context.Context, opts RuntimeOptions) (RuntimeInstance, error)
}

// RuntimeInstance is a live runtime bound to a port.
type RuntimeInstance interface {
	// Swap hot-swaps the served code for a newly built bundle without
	// rebinding the port or dropping bindings state.
	Swap(ctx context.Context, bundle string) error
	Stop(ctx context.Context) error
	Port() int
}

// WorkerOptions configure the web handler's dev runtime.
type WorkerOptions struct {
	Port              int
	Vars              map[string]string
	CompatibilityDate string
	PersistDir        string
	// BuildDir holds the staged bundles.
	BuildDir string
}

// Worker hosts the web handler in a simulated edge runtime and rebuilds it
// on demand.
type Worker struct {
	entryPoint string
	stagePath  string
	bundler    Bundler
	instance   RuntimeInstance

	// reloadMu serializes Reload with respect to itself.
	reloadMu sync.Mutex
}

// StartWorker builds the entry point and boots the runtime. A build or boot
// failure here is fatal: there is no previous instance to fall back to.
func StartWorker(ctx context.Context, entryPoint string, opts WorkerOptions, bundler Bundler, launcher RuntimeLauncher) (*Worker, error) {
	if err := os.MkdirAll(opts.BuildDir, 0700); err != nil {
		return nil, err
	}
	stagePath := filepath.Join(opts.BuildDir, "web.bundle.js")
	if err := bundler.Build(ctx, entryPoint, stagePath); err != nil {
		return nil, err
	}

	instance, err := launcher.Launch(ctx, RuntimeOptions{
		Bundle:            stagePath,
		Port:              opts.Port,
		Vars:              opts.Vars,
		CompatibilityDate: opts.CompatibilityDate,
		PersistDir:        opts.PersistDir,
	})
	if err != nil {
		return nil, fmt.Errorf("could not start worker runtime: %w", err)
	}

	log.FromContext(ctx).Infof("Web handler running on http://localhost:%d", instance.Port())
	return &Worker{
		entryPoint: entryPoint,
		stagePath:  stagePath,
		bundler:    bundler,
		instance:   instance,
	}, nil
}

// Reload rebuilds the entry point and hot-swaps the running instance.
//
// A build failure leaves the previous code serving: a bad edit must not take
// down a live dev session. The returned error is for the caller to log.
func (w *Worker) Reload(ctx context.Context) error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if err := w.bundler.Build(ctx, w.entryPoint, w.stagePath); err != nil {
		return fmt.Errorf("rebuild failed, previous code still serving: %w", err)
	}
	if err := w.instance.Swap(ctx, w.stagePath); err != nil {
		return fmt.Errorf("could not swap in new bundle: %w", err)
	}
	log.FromContext(ctx).Debugf("Reloaded web handler")
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	return w.instance.Stop(ctx)
}

func (w *Worker) Port() int {
	return w.instance.Port()
}

package dev

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bkper/bkper-cli/internal/deployment"
	"github.com/bkper/bkper-cli/internal/log"
	"github.com/bkper/bkper-cli/internal/watch"
)

// ComponentKind identifies one locally served piece of an app.
type ComponentKind int

const (
	ComponentWeb ComponentKind = iota
	ComponentClient
	ComponentEvents
	ComponentShared
)

var watchPatterns = []string{"**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.json", "**/*.css", "**/*.html"}

// Session holds everything a dev run needs. The collaborators are
// interfaces so tests can run a full session without Node, miniflare or
// the remote API.
type Session struct {
	Config   deployment.Config
	Bridge   http.Handler
	Bundler  Bundler
	Launcher RuntimeLauncher
	Deployer Deployer
	Login    LoginChecker

	ClientPort  int
	WorkerPort  int
	WatchPeriod time.Duration
	Tunnel      bool
	// Only limits the session to the named components ("web", "client",
	// "events"). Empty means everything the config declares.
	Only []string
}

// Run starts every component the config declares and blocks until ctx is
// cancelled, then shuts the components down in reverse dependency order.
func (s *Session) Run(ctx context.Context) error {
	logger := log.FromContext(ctx)
	cfg := s.Config

	if !cfg.Deployment.SourceFormat() {
		return fmt.Errorf("app %q is not in source format: dev mode needs TypeScript entry points, not prebuilt bundles", cfg.Id)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	kinds := map[ComponentKind]bool{}
	if cfg.Deployment.Web != nil {
		kinds[ComponentWeb] = true
	}
	if cfg.ClientRoot() != "" {
		kinds[ComponentClient] = true
	}
	if cfg.Deployment.Events != nil {
		kinds[ComponentEvents] = true
	}
	if cfg.SharedDir() != "" {
		kinds[ComponentShared] = true
	}
	if len(s.Only) > 0 {
		selected := map[ComponentKind]bool{ComponentShared: kinds[ComponentShared]}
		for _, name := range s.Only {
			switch name {
			case "web":
				selected[ComponentWeb] = kinds[ComponentWeb]
			case "client":
				selected[ComponentClient] = kinds[ComponentClient]
			case "events":
				selected[ComponentEvents] = kinds[ComponentEvents]
			default:
				return fmt.Errorf("unknown component %q, expected web, client or events", name)
			}
		}
		kinds = selected
	}

	vars, err := deployment.ReadDevVars(cfg.Dir)
	if err != nil {
		return err
	}
	if err := deployment.WriteEnvTypes(cfg.Dir, cfg.Deployment); err != nil {
		return err
	}

	buildDir := filepath.Join(cfg.Dir, ".bkper", "build")
	if err := os.MkdirAll(buildDir, 0700); err != nil {
		return err
	}

	var worker *Worker
	if kinds[ComponentWeb] {
		worker, err = StartWorker(ctx, cfg.WebEntryPoint(), WorkerOptions{
			Port:              s.WorkerPort,
			Vars:              vars,
			CompatibilityDate: cfg.Deployment.CompatibilityDate,
			PersistDir:        filepath.Join(cfg.Dir, ".bkper", "state"),
			BuildDir:          buildDir,
		}, s.Bundler, s.Launcher)
		if err != nil {
			return err
		}
	}

	var client *ClientServer
	if kinds[ComponentClient] {
		client, err = StartClientServer(ctx, cfg.ClientRoot(), ClientServerOptions{
			Port:       s.ClientPort,
			WorkerPort: s.WorkerPort,
			Bridge:     s.Bridge,
		})
		if err != nil {
			s.stopWorker(ctx, worker)
			return err
		}
	}

	var redeploy *RedeployTask
	if kinds[ComponentEvents] {
		redeploy = NewRedeployTask(cfg.Id, "dev", cfg.EventsEntryPoint(),
			filepath.Join(buildDir, "events.bundle.js"), s.Bundler, s.Deployer, s.Login)
	}

	workerReload := NewCoalescer("worker", func(ctx context.Context) error {
		if worker == nil {
			return nil
		}
		return worker.Reload(ctx)
	})

	var shared *SharedTrigger
	if kinds[ComponentShared] {
		var cascade []func(ctx context.Context) error
		if worker != nil {
			cascade = append(cascade, func(ctx context.Context) error { return worker.Reload(ctx) })
		}
		if redeploy != nil {
			cascade = append(cascade, func(ctx context.Context) error { redeploy.Trigger(ctx); return nil })
		}
		shared = NewSharedTrigger(func(ctx context.Context) error {
			// The shared package has no artifact of its own; consumers
			// bundle it in. A no-op build keeps cascade semantics uniform.
			return nil
		}, cascade...)
	}

	// Web and events entry points may share a source directory, so a
	// change in one directory can concern several components.
	var watchDirs []string
	dirKinds := map[string][]ComponentKind{}
	addDir := func(path string, kind ComponentKind) {
		if path == "" {
			return
		}
		dir := filepath.Dir(path)
		if _, seen := dirKinds[dir]; !seen {
			watchDirs = append(watchDirs, dir)
		}
		dirKinds[dir] = append(dirKinds[dir], kind)
	}
	if kinds[ComponentWeb] {
		addDir(cfg.WebEntryPoint(), ComponentWeb)
	}
	if kinds[ComponentEvents] {
		addDir(cfg.EventsEntryPoint(), ComponentEvents)
	}
	if dir := cfg.SharedDir(); dir != "" {
		dirKinds[dir] = append(dirKinds[dir], ComponentShared)
		watchDirs = append(watchDirs, dir)
	}

	watcher := watch.NewWatcher(watchPatterns...)
	topic, err := watcher.Watch(ctx, s.WatchPeriod, watchDirs)
	if err != nil {
		s.stopClient(ctx, client)
		s.stopWorker(ctx, worker)
		return err
	}
	events := make(chan watch.Event, 64)
	topic.Subscribe(events)

	var tunnel *childProcess
	if s.Tunnel && client != nil {
		tunnel, err = StartTunnel(ctx, cfg.Dir, client.URL())
		if err != nil {
			logger.Errorf(err, "tunnel failed to start, continuing without it")
		}
	}

	if redeploy != nil {
		redeploy.Trigger(ctx)
	}

	logger.Infof("Dev session ready for %s", cfg.Name)
	if worker != nil {
		logger.Infof("  web handler    http://localhost:%d", worker.Port())
	}
	if client != nil {
		logger.Infof("  client         %s", client.URL())
	}
	if redeploy != nil {
		logger.Infof("  events handler deploying to the dev environment on change")
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx, tunnel, client, worker, topic)
			return nil
		case event, ok := <-events:
			if !ok {
				s.shutdown(ctx, tunnel, client, worker, topic)
				return nil
			}
			logger.Debugf("Change in %s (%s%s)", event.Dir, event.Change, event.Path)
			for _, kind := range dirKinds[event.Dir] {
				switch kind {
				case ComponentWeb:
					workerReload.Trigger(ctx)
				case ComponentEvents:
					if redeploy != nil {
						redeploy.Trigger(ctx)
					}
				case ComponentShared:
					if shared != nil {
						shared.Trigger(ctx)
					}
				}
			}
		}
	}
}

func (s *Session) shutdown(ctx context.Context, tunnel *childProcess, client *ClientServer, worker *Worker, topic interface{ Close() error }) {
	RunCleanupStep(ctx, "watcher", time.Second, func(ctx context.Context) error { return topic.Close() })
	if tunnel != nil {
		RunCleanupStep(ctx, "tunnel", stopCeiling, tunnel.Stop)
	}
	s.stopClient(ctx, client)
	s.stopWorker(ctx, worker)
}

func (s *Session) stopClient(ctx context.Context, client *ClientServer) {
	if client == nil {
		return
	}
	RunCleanupStep(ctx, "client", stopCeiling, client.Stop)
}

func (s *Session) stopWorker(ctx context.Context, worker *Worker) {
	if worker == nil {
		return
	}
	RunCleanupStep(ctx, "worker", stopCeiling, worker.Stop)
}

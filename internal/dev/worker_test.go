package dev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/bkper/bkper-cli/internal/log"
)

// fakeBundler writes fixed content per build, or fails.
type fakeBundler struct {
	content string
	err     error
	onBuild func()

	mu     sync.Mutex
	builds int
}

func (f *fakeBundler) Build(ctx context.Context, entryPoint, outFile string) error {
	f.mu.Lock()
	f.builds++
	f.mu.Unlock()
	if f.onBuild != nil {
		f.onBuild()
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outFile, []byte(f.content), 0600)
}

func (f *fakeBundler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

// serveLauncher boots a real HTTP server that serves the swapped-in bundle
// content, standing in for the edge runtime.
type serveLauncher struct{}

type serveInstance struct {
	listener net.Listener
	server   *http.Server

	mu      sync.Mutex
	content string
}

func (s *serveLauncher) Launch(ctx context.Context, opts RuntimeOptions) (RuntimeInstance, error) {
	data, err := os.ReadFile(opts.Bundle)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	instance := &serveInstance{listener: listener, content: string(data)}
	instance.server = &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		instance.mu.Lock()
		content := instance.content
		instance.mu.Unlock()
		fmt.Fprint(w, content)
	})}
	go func() { _ = instance.server.Serve(listener) }()
	return instance, nil
}

func (i *serveInstance) Swap(ctx context.Context, bundle string) error {
	data, err := os.ReadFile(bundle)
	if err != nil {
		return err
	}
	i.mu.Lock()
	i.content = string(data)
	i.mu.Unlock()
	return nil
}

func (i *serveInstance) Stop(ctx context.Context) error {
	return i.server.Close()
}

func (i *serveInstance) Port() int {
	return i.listener.Addr().(*net.TCPAddr).Port
}

func TestWorkerReloadSwapsNewCode(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{content: "v1"}

	worker, err := StartWorker(ctx, "src/web.ts", WorkerOptions{BuildDir: t.TempDir()}, bundler, &serveLauncher{})
	assert.NoError(t, err)
	defer worker.Stop(ctx) //nolint:errcheck

	assert.Equal(t, "v1", get(t, worker.Port()))

	bundler.content = "v2"
	assert.NoError(t, worker.Reload(ctx))
	assert.Equal(t, "v2", get(t, worker.Port()))
}

func TestWorkerReloadKeepsServingOnBuildFailure(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{content: "v1"}

	worker, err := StartWorker(ctx, "src/web.ts", WorkerOptions{BuildDir: t.TempDir()}, bundler, &serveLauncher{})
	assert.NoError(t, err)
	defer worker.Stop(ctx) //nolint:errcheck

	port := worker.Port()
	bundler.err = errors.New("syntax error")
	assert.Error(t, worker.Reload(ctx))

	// The previous code is still serving on the same port.
	assert.Equal(t, port, worker.Port())
	assert.Equal(t, "v1", get(t, port))
}

func TestWorkerStartFailsOnBuildError(t *testing.T) {
	ctx := log.ContextWithNewDefaultLogger(context.Background())
	bundler := &fakeBundler{err: errors.New("syntax error")}

	_, err := StartWorker(ctx, "src/web.ts", WorkerOptions{BuildDir: t.TempDir()}, bundler, &serveLauncher{})
	assert.Error(t, err)
}

func TestMiniflareSwapReplacesLiveScript(t *testing.T) {
	dir := t.TempDir()
	stage := filepath.Join(dir, "web.bundle.js")
	assert.NoError(t, os.WriteFile(stage, []byte("v1"), 0600))

	live := stage + ".live.js"
	assert.NoError(t, copyFile(stage, live))

	instance := &miniflareInstance{livePath: live, port: 0}
	assert.NoError(t, os.WriteFile(stage, []byte("v2"), 0600))
	assert.NoError(t, instance.Swap(context.Background(), stage))

	data, err := os.ReadFile(live)
	assert.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	// The staged bundle is untouched for the next build.
	data, err = os.ReadFile(stage)
	assert.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func get(t *testing.T, port int) string {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	assert.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return string(body)
}

package dev

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bkper/bkper-cli/internal/exec"
	"github.com/bkper/bkper-cli/internal/log"
)

// MiniflareLauncher runs bundles under the miniflare edge-runtime simulator.
//
// The live script is a copy of the staged bundle; miniflare watches it and
// reloads on change, so Swap is an atomic rename over the live path. The
// process, its port and its persisted KV state all survive swaps.
type MiniflareLauncher struct {
	bin string
}

// NewMiniflareLauncher locates miniflare, honoring the BKPER_MINIFLARE_BIN
// override.
func NewMiniflareLauncher() (*MiniflareLauncher, error) {
	bin := os.Getenv("BKPER_MINIFLARE_BIN")
	if bin == "" {
		var err error
		bin, err = exec.LookPath("miniflare")
		if err != nil {
			return nil, fmt.Errorf("miniflare not found in PATH, install it with 'npm install -g miniflare': %w", err)
		}
	}
	return &MiniflareLauncher{bin: bin}, nil
}

func (m *MiniflareLauncher) Launch(ctx context.Context, opts RuntimeOptions) (RuntimeInstance, error) {
	livePath := opts.Bundle + ".live.js"
	if err := copyFile(opts.Bundle, livePath); err != nil {
		return nil, err
	}

	args := []string{
		livePath,
		"--modules",
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", opts.Port),
		"--watch",
		"--no-update-check",
	}
	if opts.PersistDir != "" {
		args = append(args, "--kv-persist", opts.PersistDir)
	}
	if opts.CompatibilityDate != "" {
		args = append(args, "--compat-date", opts.CompatibilityDate)
	}
	// Deterministic binding order keeps restarts comparable in logs.
	keys := make([]string, 0, len(opts.Vars))
	for key := range opts.Vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--binding", key+"="+opts.Vars[key])
	}

	cmd := exec.Command(ctx, log.Info, "", m.bin, args...)
	child, err := startChild("miniflare", cmd)
	if err != nil {
		return nil, err
	}
	return &miniflareInstance{child: child, livePath: livePath, port: opts.Port}, nil
}

type miniflareInstance struct {
	child    *childProcess
	livePath string
	port     int
}

func (i *miniflareInstance) Swap(ctx context.Context, bundle string) error {
	// Staged bundle and live script share a directory, so the rename is
	// atomic and miniflare never observes a partial script.
	if err := copyFile(bundle, bundle+".tmp"); err != nil {
		return err
	}
	return os.Rename(bundle+".tmp", i.livePath)
}

func (i *miniflareInstance) Stop(ctx context.Context) error {
	return i.child.Stop(ctx)
}

func (i *miniflareInstance) Port() int {
	return i.port
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

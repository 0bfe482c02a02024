package dev

import (
	"context"
	"fmt"
	"os"

	"github.com/bkper/bkper-cli/internal/exec"
	"github.com/bkper/bkper-cli/internal/log"
)

// StartTunnel exposes the local client server through a public URL using
// cloudflared, so the platform can reach locally served event handlers
// during development.
func StartTunnel(ctx context.Context, dir string, localURL string) (*childProcess, error) {
	bin := os.Getenv("BKPER_CLOUDFLARED_BIN")
	if bin == "" {
		var err error
		bin, err = exec.LookPath("cloudflared")
		if err != nil {
			return nil, fmt.Errorf("cloudflared not found in PATH, install it or unset --tunnel: %w", err)
		}
	}
	log.FromContext(ctx).Infof("Starting tunnel to %s", localURL)
	cmd := exec.Command(ctx, log.Info, dir, bin, "tunnel", "--url", localURL)
	return startChild("tunnel", cmd)
}

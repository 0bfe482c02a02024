package dev

import (
	"context"
	"fmt"
	"os"

	"github.com/bkper/bkper-cli/internal/exec"
	"github.com/bkper/bkper-cli/internal/log"
)

// Bundler builds a TypeScript entry point into a single module bundle on
// disk.
type Bundler interface {
	Build(ctx context.Context, entryPoint, outFile string) error
}

// ESBuildBundler shells out to the esbuild binary.
type ESBuildBundler struct {
	bin string
}

// NewESBuildBundler locates esbuild, honoring the BKPER_ESBUILD_BIN
// override.
func NewESBuildBundler() (*ESBuildBundler, error) {
	bin := os.Getenv("BKPER_ESBUILD_BIN")
	if bin == "" {
		var err error
		bin, err = exec.LookPath("esbuild")
		if err != nil {
			return nil, fmt.Errorf("esbuild not found in PATH, install it with 'npm install -g esbuild': %w", err)
		}
	}
	return &ESBuildBundler{bin: bin}, nil
}

func (b *ESBuildBundler) Build(ctx context.Context, entryPoint, outFile string) error {
	args := []string{
		entryPoint,
		"--bundle",
		"--format=esm",
		"--platform=neutral",
		"--outfile=" + outFile,
		// Runtime-provided module namespaces stay external to the bundle.
		"--external:cloudflare:*",
		"--external:node:*",
		"--log-level=warning",
	}
	if err := exec.Command(ctx, log.Debug, "", b.bin, args...).RunStderrError(ctx); err != nil {
		return fmt.Errorf("build of %s failed: %w", entryPoint, err)
	}
	return nil
}

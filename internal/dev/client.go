package dev

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/bkper/bkper-cli/internal/bind"
	"github.com/bkper/bkper-cli/internal/exec"
	"github.com/bkper/bkper-cli/internal/log"
)

// Path prefixes proxied to the worker runtime instead of the client bundler.
var workerPathPrefixes = []string{"/api"}

const authRefreshPath = "/auth/refresh"

type ClientServerOptions struct {
	// Port is the public port the browser connects to.
	Port int
	// WorkerPort is the worker runtime the API prefixes proxy to.
	WorkerPort int
	// Bridge answers the auth refresh endpoint locally.
	Bridge http.Handler
}

// ClientServer fronts a live-reloading bundler dev server for the web
// client, proxying API calls to the worker runtime and answering token
// refreshes from the CLI's own credentials.
type ClientServer struct {
	server   *http.Server
	listener net.Listener
	child    *childProcess
	port     int
}

// StartClientServer spawns the bundler dev server for clientRoot on an
// internal port and binds the fronting proxy on opts.Port.
func StartClientServer(ctx context.Context, clientRoot string, opts ClientServerOptions) (*ClientServer, error) {
	logger := log.FromContext(ctx)

	vitePort := bind.NewBindAllocator("127.0.0.1", opts.Port+1).NextPort()
	child, err := startViteServer(ctx, clientRoot, vitePort)
	if err != nil {
		return nil, err
	}

	workerURL := &url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", opts.WorkerPort)}
	viteURL := &url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", vitePort)}
	workerProxy := httputil.NewSingleHostReverseProxy(workerURL)
	viteProxy := httputil.NewSingleHostReverseProxy(viteURL)

	mux := http.NewServeMux()
	mux.Handle(authRefreshPath, opts.Bridge)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range workerPathPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				workerProxy.ServeHTTP(w, r)
				return
			}
		}
		viteProxy.ServeHTTP(w, r)
	})

	handler := cors.New(cors.Options{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowCredentials: true,
		AllowedHeaders:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}).Handler(mux)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", opts.Port))
	if err != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopCeiling)
		defer cancel()
		_ = child.Stop(stopCtx)
		return nil, fmt.Errorf("could not bind client server to port %d: %w", opts.Port, err)
	}

	cs := &ClientServer{
		server:   &http.Server{Handler: handler},
		listener: listener,
		child:    child,
		port:     opts.Port,
	}
	go func() {
		if err := cs.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Errorf(err, "client dev server failed")
		}
	}()
	logger.Infof("Client dev server running on %s", cs.URL())
	return cs, nil
}

func startViteServer(ctx context.Context, clientRoot string, port int) (*childProcess, error) {
	bin := os.Getenv("BKPER_VITE_BIN")
	args := []string{"--port", strconv.Itoa(port), "--strictPort", "--clearScreen", "false"}
	var cmd *exec.Cmd
	if bin != "" {
		cmd = exec.Command(ctx, log.Info, clientRoot, bin, args...)
	} else {
		if _, err := exec.LookPath("npx"); err != nil {
			return nil, fmt.Errorf("npx not found in PATH, a Node.js install is required to serve the client: %w", err)
		}
		cmd = exec.Command(ctx, log.Info, clientRoot, "npx", append([]string{"vite"}, args...)...)
	}
	return startChild("vite", cmd)
}

func (c *ClientServer) URL() string {
	return fmt.Sprintf("http://localhost:%d", c.port)
}

// Stop shuts the fronting server down and terminates the bundler child.
func (c *ClientServer) Stop(ctx context.Context) error {
	wg, wgctx := errgroup.WithContext(ctx)
	wg.Go(func() error { return c.server.Shutdown(wgctx) })
	wg.Go(func() error { return c.child.Stop(wgctx) })
	return wg.Wait()
}

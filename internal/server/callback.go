package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackPath is the redirect path served during OAuth sign-in.
const CallbackPath = "/callback"

// DefaultCallbackTimeout bounds how long [AwaitCallback] waits for the browser redirect.
const DefaultCallbackTimeout = 2 * time.Minute

// CallbackServer serves an [OAuthHandler] on a local address until it receives one result.
type CallbackServer struct {
	Addr    string
	Timeout time.Duration
	Logger  *log.Logger
	// Listen overrides how the listener is opened.
	Listen func(network, addr string) (net.Listener, error)
}

// AwaitCallback starts an HTTP server for handler, calls open with the listener's address, and
// waits for the OAuth redirect, the timeout, or ctx.
func (s *CallbackServer) AwaitCallback(ctx context.Context, handler *OAuthHandler, open func() error) (*oauth2.Token, error) {
	logger := shared.WithLogger(s.Logger, "component", "oauth")

	listen := s.Listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", s.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}

	router := NewBasicRouter()
	router.Use(LogRequests(logger))
	router.Handler(handler)
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting OAuth callback server", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down server", "error", err)
		}
	}()

	if open != nil {
		if err := open(); err != nil {
			return nil, err
		}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Err != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}

// LogRequests logs each request at debug level.
func LogRequests(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
		})
	}
}

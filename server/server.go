// Package server wraps the HTTP transport: listening, TLS, and
// context-driven graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

const (
	DefaultPort    = "5921"
	DefaultTLSMode = TLSModeAuto

	TLSModeAuto   = "auto"
	TLSModeManual = "manual"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

// Run serves handler until ctx is cancelled, then shuts down
// gracefully.
func (srv *Server) Run(ctx context.Context, handler http.Handler) error {
	addr := net.JoinHostPort(srv.Host, srv.Port)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		switch {
		case srv.TLS.Enabled && srv.TLS.Mode == TLSModeAuto:
			manager := &autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				Cache:      autocert.DirCache(srv.TLS.AutoCert.CacheDir),
				HostPolicy: autocert.HostWhitelist(srv.TLS.AutoCert.Domains...),
				Email:      srv.TLS.AutoCert.Email,
			}

			httpServer.TLSConfig = manager.TLSConfig()

			slog.InfoContext(ctx, "server started", "address", domainsToHTTPSAddress(srv.TLS.AutoCert.Domains))
			errCh <- httpServer.ListenAndServeTLS("", "")
		case srv.TLS.Enabled:
			slog.InfoContext(ctx, "server started", "address", "https://"+addr)
			errCh <- httpServer.ListenAndServeTLS(srv.TLS.CertFile, srv.TLS.KeyFile)
		default:
			slog.InfoContext(ctx, "server started", "address", "http://"+addr)
			errCh <- httpServer.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen and serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}

/*
File: server.go
Version: 4.0.0
Description: Starts the API listeners described in server.listeners and wraps each one
             behind ServerShutdowner for graceful shutdown.
             Protocols: "http" (plain), "https" (TLS HTTP/1.1+2 plus HTTP/3 on the same
             port), "h3" (HTTP/3 only).
*/

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// ServerShutdowner interface for graceful shutdown
type ServerShutdowner interface {
	Shutdown(ctx context.Context) error
	String() string
}

// HTTPServerWrapper wraps http.Server to implement ServerShutdowner
type HTTPServerWrapper struct {
	*http.Server
	tls bool
}

func (w *HTTPServerWrapper) Shutdown(ctx context.Context) error {
	return w.Server.Shutdown(ctx)
}

func (w *HTTPServerWrapper) String() string {
	if w.tls {
		return fmt.Sprintf("Protocol: HTTPS (HTTP/1.1&2) | Addr: %s", w.Addr)
	}
	return fmt.Sprintf("Protocol: HTTP | Addr: %s", w.Addr)
}

// HTTP3ServerWrapper wraps http3.Server to implement ServerShutdowner
type HTTP3ServerWrapper struct {
	*http3.Server
}

func (w *HTTP3ServerWrapper) Shutdown(ctx context.Context) error {
	return w.Server.Close()
}

func (w *HTTP3ServerWrapper) String() string {
	return fmt.Sprintf("Protocol: HTTP/3 (QUIC) | Addr: %s", w.Addr)
}

// loadTLSConfig builds the TLS config for https/h3 listeners, or nil when none is configured.
func loadTLSConfig(cfg ServerConfig) (*tls.Config, error) {
	if cfg.TLS.CertFile == "" && cfg.TLS.KeyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// startServers launches every configured listener. Each server goroutine is tracked by wg.
func startServers(wg *sync.WaitGroup, cfg ServerConfig, handler http.Handler, tlsConfig *tls.Config) ([]ServerShutdowner, error) {
	var servers []ServerShutdowner

	for _, l := range cfg.Listeners {
		if (l.Protocol == "https" || l.Protocol == "h3") && tlsConfig == nil {
			return servers, fmt.Errorf("listener protocol %q requires server.tls.cert_file and key_file", l.Protocol)
		}

		for _, address := range l.Address {
			for _, port := range l.Port {
				addr := net.JoinHostPort(address, strconv.Itoa(port))

				switch l.Protocol {
				case "http":
					srv := newHTTPServer(addr, handler, cfg, nil)
					w := &HTTPServerWrapper{Server: srv}
					serve(wg, w, srv.ListenAndServe)
					servers = append(servers, w)

				case "https":
					h3 := newHTTP3Server(addr, handler, tlsConfig)
					// Advertise HTTP/3 on the TCP listener.
					altSvc := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
						_ = h3.SetQuicHeaders(rw.Header())
						handler.ServeHTTP(rw, r)
					})
					srv := newHTTPServer(addr, altSvc, cfg, tlsConfig)
					w := &HTTPServerWrapper{Server: srv, tls: true}
					serve(wg, w, func() error { return srv.ListenAndServeTLS("", "") })
					servers = append(servers, w)

					h3w := &HTTP3ServerWrapper{h3}
					serve(wg, h3w, h3.ListenAndServe)
					servers = append(servers, h3w)

				case "h3":
					h3 := newHTTP3Server(addr, handler, tlsConfig)
					h3w := &HTTP3ServerWrapper{h3}
					serve(wg, h3w, h3.ListenAndServe)
					servers = append(servers, h3w)

				default:
					return servers, fmt.Errorf("unknown listener protocol %q", l.Protocol)
				}
			}
		}
	}

	return servers, nil
}

func newHTTPServer(addr string, handler http.Handler, cfg ServerConfig, tlsConfig *tls.Config) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: cfg.parsedTimeout,
		ReadTimeout:       cfg.parsedTimeout,
		WriteTimeout:      cfg.parsedTimeout,
	}
}

func newHTTP3Server(addr string, handler http.Handler, tlsConfig *tls.Config) *http3.Server {
	return &http3.Server{
		Addr:      addr,
		Handler:   handler,
		TLSConfig: tlsConfig,
		QuicConfig: &quic.Config{
			Allow0RTT: true,
		},
	}
}

func serve(wg *sync.WaitGroup, s ServerShutdowner, run func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		LogInfo("[SERVER] Starting Server [%s]", s.String())
		if err := run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			LogError("[SERVER] Server [%s] stopped: %v", s.String(), err)
		}
	}()
}

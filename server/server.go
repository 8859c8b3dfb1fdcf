package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/icristescu/irmin-server/common/errors"
	"github.com/icristescu/irmin-server/common/logging"
	"github.com/icristescu/irmin-server/store"
)

const moduleNameServer = "server"

// ErrUnsupportedScheme is returned when a configured URI names a
// transport scheme other than unix/tcp (§6 "Transport schemes").
var ErrUnsupportedScheme = errors.New(moduleNameServer, 1, "server: unsupported transport scheme")

// TLSConfig names the certificate pair for a tcp+tls listener (§6
// configuration: "tls: {cert_path, key_path}?").
type TLSConfig struct {
	CertPath string
	KeyPath  string
}

// Config is the server-side configuration table from §6: the listen
// URI, optional TLS material, and the ambient metrics address.
type Config struct {
	URI            string
	TLS            *TLSConfig
	MaxConnections int
	MetricsAddr    string
}

// Server listens for connections and runs serve on each one against a
// shared Repo.
type Server struct {
	cfg     Config
	repo    *store.Repo
	logger  *logging.Logger
	metrics *serverMetrics

	listener   net.Listener
	socketPath string
}

// New constructs a Server bound to cfg.URI but does not yet listen.
func New(cfg Config, repo *store.Repo) *Server {
	return &Server{
		cfg:     cfg,
		repo:    repo,
		logger:  logging.GetLogger("server"),
		metrics: newServerMetrics(prometheus.DefaultRegisterer),
	}
}

func (s *Server) listen() (net.Listener, error) {
	u, err := url.Parse(s.cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("server: invalid uri: %w", err)
	}

	var ln net.Listener
	switch u.Scheme {
	case "unix":
		_ = os.Remove(u.Path)
		ln, err = net.Listen("unix", u.Path)
		if err == nil {
			s.socketPath = u.Path
		}
	case "tcp":
		ln, err = net.Listen("tcp", u.Host)
	default:
		return nil, ErrUnsupportedScheme
	}
	if err != nil {
		return nil, err
	}

	if s.cfg.TLS != nil {
		cert, certErr := tls.LoadX509KeyPair(s.cfg.TLS.CertPath, s.cfg.TLS.KeyPath)
		if certErr != nil {
			_ = ln.Close()
			return nil, certErr
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}

	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	return ln, nil
}

// ListenAndServe binds the configured transport and accepts
// connections until the listener is closed (§4.5, §6). Each accepted
// connection is served in its own goroutine (§5: "the server hosts
// many sessions concurrently").
func (s *Server) ListenAndServe() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	s.listener = ln

	if s.cfg.MetricsAddr != "" {
		go s.serveMetrics()
	}

	s.logger.Info("listening", "uri", s.cfg.URI)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serve(conn, s.repo, s.logger, s.metrics)
	}
}

func (s *Server) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(s.cfg.MetricsAddr, mux); err != nil {
		s.logger.Warn("metrics server stopped", "err", err)
	}
}

// Close stops accepting connections and, for a unix listener, unlinks
// its socket file (§6 "Unix-socket server unlinks its socket file on
// process exit").
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
	return err
}

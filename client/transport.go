package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/icristescu/irmin-server/common/errors"
)

const moduleNameTransport = "client"

// ErrUnsupportedScheme mirrors server.ErrUnsupportedScheme for the
// client side of §6 "Transport schemes".
var ErrUnsupportedScheme = errors.New(moduleNameTransport, 4, "client: unsupported transport scheme")

// dial opens the raw transport named by cfg.URI, verifying the TLS
// hostname against the URI host when cfg.TLS is set (§6).
func dial(cfg Config) (net.Conn, error) {
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("client: invalid uri: %w", err)
	}

	switch u.Scheme {
	case "unix":
		raw, err := net.Dial("unix", u.Path)
		if err != nil {
			return nil, err
		}
		if cfg.TLS {
			return tls.Client(raw, &tls.Config{ServerName: u.Path}), nil
		}
		return raw, nil
	case "tcp":
		addr := u.Host
		if u.Port() == "" {
			addr = net.JoinHostPort(u.Hostname(), "8888")
		}
		if cfg.TLS {
			return tls.Dial("tcp", addr, &tls.Config{ServerName: u.Hostname()})
		}
		return net.Dial("tcp", addr)
	default:
		return nil, ErrUnsupportedScheme
	}
}

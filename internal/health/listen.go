package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const unixScheme = "unix://"

// ErrAlreadyServing means another process answers on the configured socket.
var ErrAlreadyServing = errors.New("health endpoint already served by another process")

// Endpoint is a parsed health.listen value.
type Endpoint struct {
	Network string
	Address string
}

// ParseEndpoint accepts unix:///abs/path or host:port.
func ParseEndpoint(listen string) (Endpoint, error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return Endpoint{}, errors.New("health listen address is empty")
	}
	if path, ok := strings.CutPrefix(listen, unixScheme); ok {
		if !filepath.IsAbs(path) {
			return Endpoint{}, fmt.Errorf("health socket path %q must be absolute", path)
		}
		return Endpoint{Network: "unix", Address: path}, nil
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return Endpoint{}, fmt.Errorf("health listen %q: %w", listen, err)
	}
	return Endpoint{Network: "tcp", Address: listen}, nil
}

// Target is the gRPC dial target for the endpoint.
func (e Endpoint) Target() string {
	if e.Network == "unix" {
		return "unix://" + e.Address
	}
	return e.Address
}

// Listen binds the endpoint. A stale unix socket left by a dead process is
// removed; a live one yields ErrAlreadyServing.
func Listen(ctx context.Context, ep Endpoint, probeTimeout time.Duration) (net.Listener, error) {
	if ep.Network != "unix" {
		listener, err := net.Listen(ep.Network, ep.Address)
		if err != nil {
			return nil, fmt.Errorf("listen %s %s: %w", ep.Network, ep.Address, err)
		}
		return listener, nil
	}

	if err := os.MkdirAll(filepath.Dir(ep.Address), 0o700); err != nil {
		return nil, fmt.Errorf("ensure health socket dir: %w", err)
	}

	listener, err := net.Listen("unix", ep.Address)
	if err == nil {
		_ = os.Chmod(ep.Address, 0o600)
		return listener, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("listen unix %s: %w", ep.Address, err)
	}

	if socketAlive(ctx, ep.Address, probeTimeout) {
		return nil, ErrAlreadyServing
	}
	if err := os.Remove(ep.Address); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale health socket %s: %w", ep.Address, err)
	}

	listener, err = net.Listen("unix", ep.Address)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", ep.Address, err)
	}
	_ = os.Chmod(ep.Address, 0o600)
	return listener, nil
}

func socketAlive(ctx context.Context, path string, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

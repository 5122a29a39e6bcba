// Package tailnet provides an optional additive Tailscale listener for
// the WebSocket transport. It never replaces the loopback listener —
// remote access stays opt-in, gated on an explicit auth key — and it
// connects to the default Tailscale coordination server rather than a
// private control plane, since a headless terminal daemon has no
// multi-tenant hub concept to anchor a custom one to.
package tailnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"tailscale.com/tsnet"
)

// Client wraps a tsnet.Server for the daemon's optional remote listener.
type Client struct {
	server   *tsnet.Server
	hostname string
	logger   *slog.Logger
}

// Config names the opt-in tailnet listener's settings, sourced from
// WS_TAILSCALE_AUTHKEY / WS_TAILSCALE_HOSTNAME.
type Config struct {
	// AuthKey is the pre-auth key for joining the tailnet. Required —
	// New refuses to start an interactive-login node for a headless
	// daemon.
	AuthKey string

	// Hostname is this node's name on the tailnet. Defaults to
	// "agent-tuid" when empty.
	Hostname string

	// StateDir is the directory for storing Tailscale state. Defaults
	// to ~/.agent-tuid/tsnet.
	StateDir string

	// Ephemeral marks the node for removal from the tailnet once it
	// disconnects, appropriate for a daemon that may be autostarted and
	// killed repeatedly.
	Ephemeral bool
}

const defaultHostname = "agent-tuid"

// New builds a Client but does not yet connect; call Start for that.
func New(cfg *Config, logger *slog.Logger) (*Client, error) {
	if cfg.AuthKey == "" {
		return nil, fmt.Errorf("tailnet: AuthKey is required for the opt-in remote listener")
	}
	if logger == nil {
		logger = slog.Default()
	}

	hostname := cfg.Hostname
	if hostname == "" {
		hostname = defaultHostname
	}

	stateDir := cfg.StateDir
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("tailnet: could not determine home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".agent-tuid", "tsnet")
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("tailnet: could not create state directory: %w", err)
	}

	server := &tsnet.Server{
		Hostname:  hostname,
		Dir:       stateDir,
		AuthKey:   cfg.AuthKey,
		Ephemeral: cfg.Ephemeral,
		Logf:      func(format string, args ...any) { logger.Debug(fmt.Sprintf(format, args...)) },
	}

	return &Client{server: server, hostname: hostname, logger: logger}, nil
}

// Start connects to the tailnet using the default Tailscale coordination
// server.
func (c *Client) Start(ctx context.Context) error {
	c.logger.Info("connecting to tailnet", "hostname", c.hostname)

	status, err := c.server.Up(ctx)
	if err != nil {
		return fmt.Errorf("tailnet: failed to connect: %w", err)
	}

	c.logger.Info("connected to tailnet", "tailscale_ips", status.TailscaleIPs, "backend_state", status.BackendState)
	return nil
}

// Close disconnects from the tailnet.
func (c *Client) Close() error {
	c.logger.Info("disconnecting from tailnet")
	return c.server.Close()
}

// Listen creates a listener on the tailnet, for the WS transport's
// additive remote listener.
func (c *Client) Listen(network, addr string) (net.Listener, error) {
	return c.server.Listen(network, addr)
}

// Dial connects to an address on the tailnet.
func (c *Client) Dial(ctx context.Context, network, addr string) (net.Conn, error) {
	return c.server.Dial(ctx, network, addr)
}

// TailscaleIPs returns this node's tailnet IPv4/IPv6 addresses.
func (c *Client) TailscaleIPs() []string {
	ip4, ip6 := c.server.TailscaleIPs()
	var result []string
	if ip4.IsValid() {
		result = append(result, ip4.String())
	}
	if ip6.IsValid() {
		result = append(result, ip6.String())
	}
	return result
}

// Hostname returns the tailnet hostname this node registered under.
func (c *Client) Hostname() string { return c.hostname }

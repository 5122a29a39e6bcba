// Package config resolves the daemon's environment-driven settings:
// transport discovery paths, WebSocket server policy, and session
// limits. Everything here is env-only (no config file) since the
// daemon is a short-lived, foreground-or-supervised process rather than
// a long-lived client with saved preferences.
//
// Environment variables:
//   - TRANSPORT: client transport selector, "unix" (default) or "ws".
//   - SOCKET: override the local socket path.
//   - WS_STATE (or deprecated API_STATE): override the WS state file path.
//   - WS_ADDR: explicit WS URL for clients.
//   - WS_LISTEN / WS_ALLOW_REMOTE / WS_MAX_CONNECTIONS / WS_QUEUE: WS server bind and policy.
//   - WS_DISABLED: disable the WS server entirely.
//   - WS_TAILSCALE_AUTHKEY / WS_TAILSCALE_HOSTNAME: opt-in tsnet listener.
//   - MAX_SESSIONS: integer cap, default 16.
//   - DAEMON_FOREGROUND: suppress autostart re-spawn loops.
//   - Of the deprecated API_* names, only API_STATE is read (with a
//     warning, as a fallback for WS_STATE); the other API_* names are
//     not read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Transport selects how a client reaches the daemon.
type Transport string

const (
	TransportUnix Transport = "unix"
	TransportWS   Transport = "ws"
)

// Config holds every daemon- and client-facing setting resolved from
// the environment.
type Config struct {
	Transport Transport

	SocketPath string
	WSState    string
	WSAddr     string

	WSListen         string
	WSAllowRemote    bool
	WSMaxConnections int
	WSQueue          int
	WSDisabled       bool

	TailscaleAuthKey  string
	TailscaleHostname string

	MaxSessions      int
	DaemonForeground bool

	// Warnings accumulates deprecated-variable notices surfaced by Load,
	// so the caller can log them once a logger is wired up.
	Warnings []string
}

const (
	defaultWSListen         = "127.0.0.1:0"
	defaultWSMaxConnections = 32
	defaultWSQueue          = 128
	defaultMaxSessions      = 16
)

// Load resolves a Config from the current environment, applying the
// deprecated API_* -> WS_* aliasing described in package docs.
func Load() (*Config, error) {
	cfg := &Config{
		Transport:        TransportUnix,
		WSListen:         defaultWSListen,
		WSMaxConnections: defaultWSMaxConnections,
		WSQueue:          defaultWSQueue,
		MaxSessions:      defaultMaxSessions,
	}

	if t := os.Getenv("TRANSPORT"); t == string(TransportWS) {
		cfg.Transport = TransportWS
	}

	dir, err := runtimeDir()
	if err != nil {
		return nil, fmt.Errorf("config: resolve runtime dir: %w", err)
	}

	cfg.SocketPath = envOr("SOCKET", filepath.Join(dir, "agent-tui.sock"))
	wsStateDefault := filepath.Join(dir, "api.json")
	if home, err := os.UserHomeDir(); err == nil {
		wsStateDefault = filepath.Join(home, ".agent-tui", "api.json")
	}
	cfg.WSState = cfg.resolveWithAlias("WS_STATE", "API_STATE", wsStateDefault)
	cfg.WSAddr = os.Getenv("WS_ADDR")

	if v := os.Getenv("WS_LISTEN"); v != "" {
		cfg.WSListen = v
	}
	cfg.WSAllowRemote = envBool("WS_ALLOW_REMOTE", false)
	cfg.WSDisabled = envBool("WS_DISABLED", false)
	if v, ok := envInt("WS_MAX_CONNECTIONS"); ok {
		cfg.WSMaxConnections = v
	}
	if v, ok := envInt("WS_QUEUE"); ok {
		cfg.WSQueue = v
	}

	cfg.TailscaleAuthKey = os.Getenv("WS_TAILSCALE_AUTHKEY")
	cfg.TailscaleHostname = os.Getenv("WS_TAILSCALE_HOSTNAME")

	if v, ok := envInt("MAX_SESSIONS"); ok {
		cfg.MaxSessions = v
	}
	cfg.DaemonForeground = envBool("DAEMON_FOREGROUND", false)

	return cfg, nil
}

// resolveWithAlias reads primary, falling back to deprecated, recording
// a warning when the deprecated name is what supplied the value.
func (c *Config) resolveWithAlias(primary, deprecated, def string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	if v := os.Getenv(deprecated); v != "" {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s is deprecated; use %s", deprecated, primary))
		return v
	}
	return def
}

// runtimeDir picks the directory the local socket lives in:
// $XDG_RUNTIME_DIR if set, else the system temp directory. The WS state
// file defaults to ~/.agent-tui/api.json and falls back to this
// directory only when the home directory cannot be resolved.
func runtimeDir() (string, error) {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return v, nil
	}
	return os.TempDir(), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

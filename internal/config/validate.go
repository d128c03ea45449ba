package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/rbright/socialbridge/internal/await"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Session.Reinitialize {
	case ReinitializeReject, ReinitializeReplace:
	default:
		return nil, fmt.Errorf("session.reinitialize must be one of: reject, replace")
	}

	polls := []struct {
		name   string
		policy await.Policy
	}{
		{"presence", cfg.Timeouts.Presence},
		{"query", cfg.Timeouts.Query},
		{"messaging", cfg.Timeouts.Messaging},
		{"lobby", cfg.Timeouts.Lobby},
		{"voice", cfg.Timeouts.Voice},
		{"auth", cfg.Timeouts.Auth},
		{"connect", cfg.Timeouts.Connect},
	}
	for _, p := range polls {
		if p.policy.Interval <= 0 {
			return nil, fmt.Errorf("timeouts.%s.interval_ms must be > 0", p.name)
		}
		if p.policy.Deadline <= 0 {
			return nil, fmt.Errorf("timeouts.%s.deadline_ms must be > 0", p.name)
		}
		if p.policy.Interval > p.policy.Deadline {
			return nil, fmt.Errorf("timeouts.%s.interval_ms must not exceed deadline_ms", p.name)
		}
	}

	if cfg.Timeouts.RegressionGrace < 0 {
		return nil, fmt.Errorf("timeouts.regression_grace_ms must be >= 0")
	}
	if cfg.Timeouts.RegressionGrace >= cfg.Timeouts.Connect.Deadline {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(
			"timeouts.regression_grace_ms (%s) is not shorter than the connect deadline (%s); regressions will surface as connection timeouts",
			cfg.Timeouts.RegressionGrace, cfg.Timeouts.Connect.Deadline,
		)})
	}

	if cfg.Events.Capacity <= 0 {
		return nil, fmt.Errorf("events.capacity must be > 0")
	}
	if cfg.Protocol.MaxLineBytes <= 0 {
		return nil, fmt.Errorf("protocol.max_line_bytes must be > 0")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Output {
	case LogOutputStderr:
		if cfg.Log.Path != "" {
			warnings = append(warnings, Warning{Message: "log.path is ignored unless log.output=file"})
		}
	case LogOutputFile:
	default:
		return nil, fmt.Errorf("log.output must be one of: stderr, file")
	}

	if err := validateListen(cfg.Health.Listen); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}
	if strings.TrimSpace(cfg.Audio.Fallback) == "" {
		return nil, fmt.Errorf("audio.fallback must not be empty")
	}

	return warnings, nil
}

func validateListen(listen string) error {
	if listen == "" {
		return nil
	}

	if path, ok := strings.CutPrefix(listen, "unix://"); ok {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("health.listen unix socket path must be absolute")
		}
		return nil
	}

	if _, _, err := net.SplitHostPort(listen); err != nil {
		return fmt.Errorf("health.listen must be unix:///path or host:port: %w", err)
	}
	return nil
}

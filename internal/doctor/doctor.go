// Package doctor runs readiness diagnostics for config, the native SDK,
// voice input, and the health endpoint.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/socialbridge/internal/audio"
	"github.com/rbright/socialbridge/internal/config"
	"github.com/rbright/socialbridge/internal/health"
	"github.com/rbright/socialbridge/internal/sdk"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check against a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	return Report{Checks: []Check{
		checkConfig(loaded),
		checkNative(sdk.Available()),
		checkApplicationID(loaded.Config),
		checkAudioSelection(ctx, loaded.Config),
		checkHealth(ctx, loaded.Config),
	}}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", loaded.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func checkNative(available bool) Check {
	if !available {
		return Check{Name: "sdk.native", Pass: false, Message: sdk.ErrUnavailable.Error()}
	}
	return Check{Name: "sdk.native", Pass: true, Message: "native social SDK compiled in"}
}

// checkApplicationID passes without a configured id too; initialize may
// still carry one. It fails only on an unusable env override.
func checkApplicationID(cfg config.Config) Check {
	if cfg.SDK.ApplicationID == 0 {
		return Check{
			Name:    "sdk.application_id",
			Pass:    true,
			Message: fmt.Sprintf("not configured; initialize must pass app_id (or set %s)", config.EnvApplicationID),
		}
	}
	return Check{Name: "sdk.application_id", Pass: true, Message: fmt.Sprintf("%d", cfg.SDK.ApplicationID)}
}

// checkAudioSelection runs live device selection to surface fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkHealth probes a running bridge's health endpoint when one is configured.
func checkHealth(ctx context.Context, cfg config.Config) Check {
	if strings.TrimSpace(cfg.Health.Listen) == "" {
		return Check{Name: "health", Pass: true, Message: "disabled (health.listen is empty)"}
	}

	ep, err := health.ParseEndpoint(cfg.Health.Listen)
	if err != nil {
		return Check{Name: "health", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	process, err := health.Check(ctx, ep, "")
	if err != nil {
		return Check{Name: "health", Pass: false, Message: err.Error()}
	}
	if !process.Serving() {
		return Check{Name: "health", Pass: false, Message: fmt.Sprintf("%s reports %s", ep.Target(), process.Raw)}
	}

	message := fmt.Sprintf("serving at %s", ep.Target())
	if session, err := health.Check(ctx, ep, health.SessionService); err == nil {
		message += fmt.Sprintf("; session %s", strings.ToLower(session.Status.String()))
	}
	return Check{Name: "health", Pass: true, Message: message}
}

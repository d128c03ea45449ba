// Package app wires configuration, logging, the vendor session, and the
// stdio protocol loop behind the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/socialbridge/internal/audio"
	"github.com/rbright/socialbridge/internal/bridge"
	"github.com/rbright/socialbridge/internal/cli"
	"github.com/rbright/socialbridge/internal/config"
	"github.com/rbright/socialbridge/internal/doctor"
	"github.com/rbright/socialbridge/internal/events"
	"github.com/rbright/socialbridge/internal/health"
	"github.com/rbright/socialbridge/internal/logging"
	"github.com/rbright/socialbridge/internal/protocol"
	"github.com/rbright/socialbridge/internal/sdk"
	"github.com/rbright/socialbridge/internal/session"
	"github.com/rbright/socialbridge/internal/version"
)

const healthProbeTimeout = 200 * time.Millisecond

// errChecksFailed is returned after a failing doctor report was printed.
var errChecksFailed = errors.New("doctor checks failed")

// Runner binds the process streams to command execution.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// OpenLibrary defaults to sdk.Open.
	OpenLibrary func() (sdk.Library, error)
}

// Execute runs args and returns the process exit status.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	err := cli.Execute(ctx, args, r.Stdout, r.Stderr, r.run, version.String())
	switch {
	case err == nil:
		return 0
	case cli.IsUsage(err):
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		fmt.Fprintln(r.Stderr, "Run 'socialbridge --help' for usage.")
		return 2
	case errors.Is(err, errChecksFailed):
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
}

func (r Runner) run(ctx context.Context, cmd cli.Command, opts cli.Options) error {
	switch cmd {
	case cli.CommandServe:
		return r.serve(ctx, opts)
	case cli.CommandDoctor:
		return r.doctor(ctx, opts)
	case cli.CommandDevices:
		return r.devices(ctx)
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return nil
	default:
		return &cli.UsageError{Err: fmt.Errorf("unsupported command %q", cmd)}
	}
}

func (r Runner) serve(ctx context.Context, opts cli.Options) error {
	loaded, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	cfg := loaded.Config

	logRuntime, err := logging.New(cfg.Log, r.Stderr)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "message", w.Message)
	}

	lib, err := r.openLibrary()
	if err != nil {
		// The protocol still serves; initialize reports the failure.
		logger.Warn("native SDK unavailable", "error", err.Error())
		lib = nil
	}

	queue := events.NewQueue(cfg.Events.Capacity, logger)
	mgr := session.NewManager(lib, cfg, queue, logger)
	defer func() {
		if mgr.Disconnect() {
			logger.Info("session closed on exit")
		}
	}()

	if cfg.Health.Listen != "" {
		stop, err := startHealth(ctx, cfg.Health, mgr, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	dispatcher := bridge.New(mgr, cfg.Timeouts, logger)
	logger.Info("serving",
		"config", loaded.Path,
		"log", logRuntime.Path,
		"commands", len(dispatcher.Commands()),
		"native_sdk", lib != nil,
	)

	err = protocol.Serve(
		ctx,
		protocol.NewReader(r.Stdin, cfg.Protocol.MaxLineBytes),
		protocol.NewWriter(r.Stdout),
		dispatcher,
		logger,
	)
	if err != nil {
		logger.Error("protocol loop failed", "error", err.Error())
		return err
	}
	logger.Info("input closed; shutting down")
	return nil
}

func (r Runner) openLibrary() (sdk.Library, error) {
	if r.OpenLibrary != nil {
		return r.OpenLibrary()
	}
	return sdk.Open()
}

// startHealth serves the health endpoint until the returned stop runs.
func startHealth(ctx context.Context, cfg config.HealthConfig, mgr *session.Manager, logger *slog.Logger) (func(), error) {
	ep, err := health.ParseEndpoint(cfg.Listen)
	if err != nil {
		return nil, err
	}
	listener, err := health.Listen(ctx, ep, healthProbeTimeout)
	if err != nil {
		return nil, err
	}

	srv := health.NewServer(logger)
	srv.Follow(mgr.State())
	mgr.OnStateChange(srv.Follow)

	healthCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(healthCtx, listener); err != nil {
			logger.Error("health endpoint failed", "error", err.Error())
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (r Runner) doctor(ctx context.Context, opts cli.Options) error {
	loaded, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
	}

	report := doctor.Run(ctx, loaded)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errChecksFailed
	}
	return nil
}

func (r Runner) devices(ctx context.Context) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no audio devices found")
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

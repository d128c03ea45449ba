// Package config resolves, parses, validates, and defaults socialbridge configuration.
package config

import (
	"time"

	"github.com/rbright/socialbridge/internal/await"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	SDK      SDKConfig
	Session  SessionConfig
	Timeouts TimeoutsConfig
	Events   EventsConfig
	Protocol ProtocolConfig
	Log      LogConfig
	Health   HealthConfig
	Audio    AudioConfig
}

// SDKConfig identifies the vendor application.
type SDKConfig struct {
	// ApplicationID is used when initialize carries no app_id.
	ApplicationID uint64
}

// ReinitializePolicy decides what a second initialize does while a session is active.
type ReinitializePolicy string

const (
	ReinitializeReject  ReinitializePolicy = "reject"
	ReinitializeReplace ReinitializePolicy = "replace"
)

type SessionConfig struct {
	Reinitialize ReinitializePolicy
}

// TimeoutsConfig holds one poll policy per operation class.
type TimeoutsConfig struct {
	Presence  await.Policy
	Query     await.Policy
	Messaging await.Policy
	Lobby     await.Policy
	Voice     await.Policy
	Auth      await.Policy
	Connect   await.Policy
	// RegressionGrace bounds recovery after the vendor status regresses.
	RegressionGrace time.Duration
}

type EventsConfig struct {
	Capacity int
}

type ProtocolConfig struct {
	MaxLineBytes int
}

// LogOutput selects where diagnostics go.
type LogOutput string

const (
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

type LogConfig struct {
	Level  string
	Output LogOutput
	// Path overrides the XDG state location when Output is file.
	Path string
}

// HealthConfig controls the optional gRPC health endpoint.
type HealthConfig struct {
	// Listen is empty (disabled), unix:///path, or host:port.
	Listen string
}

// AudioConfig controls preferred and fallback voice input selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}

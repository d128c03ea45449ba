package config

import (
	"time"

	"github.com/rbright/socialbridge/internal/await"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Session: SessionConfig{Reinitialize: ReinitializeReject},
		Timeouts: TimeoutsConfig{
			Presence:        await.Policy{Interval: 50 * time.Millisecond, Deadline: 3 * time.Second},
			Query:           await.Policy{Interval: 50 * time.Millisecond, Deadline: 15 * time.Second},
			Messaging:       await.Policy{Interval: 25 * time.Millisecond, Deadline: 15 * time.Second},
			Lobby:           await.Policy{Interval: 50 * time.Millisecond, Deadline: 10 * time.Second},
			Voice:           await.Policy{Interval: 100 * time.Millisecond, Deadline: 10 * time.Second},
			Auth:            await.Policy{Interval: 50 * time.Millisecond, Deadline: 5 * time.Second},
			Connect:         await.Policy{Interval: 200 * time.Millisecond, Deadline: 30 * time.Second},
			RegressionGrace: 5 * time.Second,
		},
		Events:   EventsConfig{Capacity: 1024},
		Protocol: ProtocolConfig{MaxLineBytes: 4 << 20},
		Log: LogConfig{
			Level:  "info",
			Output: LogOutputStderr,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
	}
}

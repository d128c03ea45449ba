package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/socialbridge/internal/await"
)

// Parse reads JSONC configuration content over base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(normalized), "{") {
		return Config{}, nil, fmt.Errorf("config must be a JSON object")
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

type jsoncConfig struct {
	SDK      *jsoncSDK      `json:"sdk"`
	Session  *jsoncSession  `json:"session"`
	Timeouts *jsoncTimeouts `json:"timeouts"`
	Events   *jsoncEvents   `json:"events"`
	Protocol *jsoncProtocol `json:"protocol"`
	Log      *jsoncLog      `json:"log"`
	Health   *jsoncHealth   `json:"health"`
	Audio    *jsoncAudio    `json:"audio"`
}

type jsoncSDK struct {
	ApplicationID *jsoncSnowflake `json:"application_id"`
}

type jsoncSession struct {
	Reinitialize *string `json:"reinitialize"`
}

type jsoncPoll struct {
	IntervalMS *int `json:"interval_ms"`
	DeadlineMS *int `json:"deadline_ms"`
}

type jsoncTimeouts struct {
	Presence          *jsoncPoll `json:"presence"`
	Query             *jsoncPoll `json:"query"`
	Messaging         *jsoncPoll `json:"messaging"`
	Lobby             *jsoncPoll `json:"lobby"`
	Voice             *jsoncPoll `json:"voice"`
	Auth              *jsoncPoll `json:"auth"`
	Connect           *jsoncPoll `json:"connect"`
	RegressionGraceMS *int       `json:"regression_grace_ms"`
}

type jsoncEvents struct {
	Capacity *int `json:"capacity"`
}

type jsoncProtocol struct {
	MaxLineBytes *int `json:"max_line_bytes"`
}

type jsoncLog struct {
	Level  *string `json:"level"`
	Output *string `json:"output"`
	Path   *string `json:"path"`
}

type jsoncHealth struct {
	Listen *string `json:"listen"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

// jsoncSnowflake accepts an id as a JSON number or a decimal string.
type jsoncSnowflake uint64

func (s *jsoncSnowflake) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("expected unsigned integer id or decimal string, got %s", string(data))
	}
	*s = jsoncSnowflake(id)
	return nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.SDK != nil && payload.SDK.ApplicationID != nil {
		cfg.SDK.ApplicationID = uint64(*payload.SDK.ApplicationID)
	}

	if payload.Session != nil && payload.Session.Reinitialize != nil {
		cfg.Session.Reinitialize = ReinitializePolicy(strings.ToLower(strings.TrimSpace(*payload.Session.Reinitialize)))
	}

	if t := payload.Timeouts; t != nil {
		applyPoll(&cfg.Timeouts.Presence, t.Presence)
		applyPoll(&cfg.Timeouts.Query, t.Query)
		applyPoll(&cfg.Timeouts.Messaging, t.Messaging)
		applyPoll(&cfg.Timeouts.Lobby, t.Lobby)
		applyPoll(&cfg.Timeouts.Voice, t.Voice)
		applyPoll(&cfg.Timeouts.Auth, t.Auth)
		applyPoll(&cfg.Timeouts.Connect, t.Connect)
		if t.RegressionGraceMS != nil {
			cfg.Timeouts.RegressionGrace = millis(*t.RegressionGraceMS)
		}
	}

	if payload.Events != nil && payload.Events.Capacity != nil {
		cfg.Events.Capacity = *payload.Events.Capacity
	}

	if payload.Protocol != nil && payload.Protocol.MaxLineBytes != nil {
		cfg.Protocol.MaxLineBytes = *payload.Protocol.MaxLineBytes
	}

	if payload.Log != nil {
		if payload.Log.Level != nil {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
		}
		if payload.Log.Output != nil {
			cfg.Log.Output = LogOutput(strings.ToLower(strings.TrimSpace(*payload.Log.Output)))
		}
		if payload.Log.Path != nil {
			cfg.Log.Path = strings.TrimSpace(*payload.Log.Path)
		}
	}

	if payload.Health != nil && payload.Health.Listen != nil {
		cfg.Health.Listen = strings.TrimSpace(*payload.Health.Listen)
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}
}

func applyPoll(dst *await.Policy, src *jsoncPoll) {
	if src == nil {
		return
	}
	if src.IntervalMS != nil {
		dst.Interval = millis(*src.IntervalMS)
	}
	if src.DeadlineMS != nil {
		dst.Deadline = millis(*src.DeadlineMS)
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Package audio resolves the voice chat input device from PulseAudio sources.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const defaultKeyword = "default"

// Device is one Pulse input source.
type Device struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	State       string `json:"state"`
	Available   bool   `json:"available"`
	Muted       bool   `json:"muted"`
	Default     bool   `json:"default"`
}

// Usable reports whether voice can be captured from the device.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the resolved voice input.
type Selection struct {
	Device Device
	// Warning explains why the preferred input was skipped.
	Warning  string
	Fallback bool
}

// ListDevices queries the Pulse server for input sources.
func ListDevices(ctx context.Context) ([]Device, error) {
	type listed struct {
		devices []Device
		err     error
	}

	// The pulse client has no context support; abandon the query on cancel.
	done := make(chan listed, 1)
	go func() {
		devices, err := queryPulse()
		done <- listed{devices: devices, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list audio inputs: %w", ctx.Err())
	case res := <-done:
		return res.devices, res.err
	}
}

func queryPulse() ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("socialbridge"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var sources pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sources); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return toDevices(sources, defaultSource.ID()), nil
}

func toDevices(sources pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(sources))
	for _, source := range sources {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceState(source.State),
			Available:   portAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices
}

// SelectDevice resolves the audio.input and audio.fallback preferences
// against the live source list.
func SelectDevice(ctx context.Context, input, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return Resolve(devices, input, fallback)
}

// Resolve picks a device from devices. "default" or an empty preference
// means the server default source; anything else matches id or description
// case-insensitively.
func Resolve(devices []Device, input, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primary, err := find(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	backup, err := find(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("input %q is %s and audio.fallback: %w", primary.ID, reason, err)
	}
	if !backup.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", backup.ID)
	}
	if backup.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", backup.ID)
	}

	return Selection{
		Device:   backup,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, backup.ID),
		Fallback: backup.ID != primary.ID,
	}, nil
}

func find(devices []Device, preference string) (Device, error) {
	term := strings.ToLower(strings.TrimSpace(preference))
	if term == "" || term == defaultKeyword {
		for _, dev := range devices {
			if dev.Default {
				return dev, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}

	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.ID), term) || strings.Contains(strings.ToLower(dev.Description), term) {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("%q did not match any device", preference)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// portAvailable treats a source without ports, or whose active port reports
// unknown (0) or yes (2), as available.
func portAvailable(source *pulseproto.GetSourceInfoReply) bool {
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available == 0 || port.Available == 2
		}
	}
	return true
}

// Package audio handles device discovery, selection, and PCM capture streams
// for the shot listener.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	SampleRate     = 16000
	chunkSizeBytes = 640 // 20ms @ 16kHz mono s16
)

// Backend names a capture implementation.
type Backend string

const (
	BackendPulse     Backend = "pulse"
	BackendMiniaudio Backend = "miniaudio"
)

// ErrUnknownBackend is returned for backend names other than pulse and miniaudio.
var ErrUnknownBackend = errors.New("unknown audio backend")

// Device describes one input source surfaced by a backend.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns input sources known to backend.
func ListDevices(ctx context.Context, backend Backend) ([]Device, error) {
	switch backend {
	case BackendPulse, "":
		return listPulseDevices(ctx)
	case BackendMiniaudio:
		return listMiniaudioDevices(ctx)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, backend)
	}
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, backend Backend, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx, backend)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList applies selection policy to a pre-fetched device list.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	defaultDevice := findDevice(devices, func(d Device) bool { return d.Default })

	primary := defaultDevice
	if input != "" {
		primary = findDevice(devices, func(d Device) bool { return deviceMatches(d, input) })
		if primary == nil {
			return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
		}
	}
	if primary == nil {
		return Selection{}, errors.New("default audio source is unavailable")
	}
	if usable(*primary) {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	candidate := defaultDevice
	if fallback != "" {
		candidate = findDevice(devices, func(d Device) bool { return deviceMatches(d, fallback) })
		if candidate == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
	}
	if candidate == nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: default audio source is unavailable", primary.ID, reason)
	}
	if !candidate.Available {
		return Selection{}, fmt.Errorf("audio fallback device %q is not available", candidate.ID)
	}
	if candidate.Muted {
		return Selection{}, fmt.Errorf("audio fallback device %q is muted", candidate.ID)
	}

	return Selection{
		Device:   *candidate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, candidate.ID),
		Fallback: primary.ID != candidate.ID,
	}, nil
}

// normalizeTerm lowercases a selector; "default" and blank both mean the default source.
func normalizeTerm(term string) string {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "default" {
		return ""
	}
	return term
}

func findDevice(devices []Device, match func(Device) bool) *Device {
	for i := range devices {
		if match(devices[i]) {
			return &devices[i]
		}
	}
	return nil
}

func usable(d Device) bool {
	return d.Available && !d.Muted
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

//go:build cgo

package audio

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

func listMiniaudioDevices(_ context.Context) ([]Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init miniaudio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("miniaudio devices: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:          hex.EncodeToString(info.ID[:]),
			Description: info.Name(),
			State:       "unknown",
			Available:   true,
			Default:     info.IsDefault != 0,
		})
	}
	return devices, nil
}

// startMiniaudio opens a miniaudio capture device that feeds capture.onPCM.
func startMiniaudio(capture *Capture) error {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init miniaudio context: %w", err)
	}
	release := func() {
		_ = ctx.Uninit()
		ctx.Free()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = SampleRate

	if capture.device.ID != "" {
		idBytes, err := hex.DecodeString(capture.device.ID)
		if err != nil {
			release()
			return fmt.Errorf("invalid device ID %q: %w", capture.device.ID, err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			// miniaudio reuses data after the callback returns.
			frame := make([]byte, len(data))
			copy(frame, data)
			_, _ = capture.onPCM(frame)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		release()
		return fmt.Errorf("init miniaudio device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		release()
		return fmt.Errorf("start miniaudio device: %w", err)
	}

	capture.mu.Lock()
	capture.stopBackend = func() {
		_ = device.Stop()
		device.Uninit()
		release()
	}
	capture.mu.Unlock()
	return nil
}

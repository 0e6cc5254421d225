//go:build !cgo

package audio

import (
	"context"
	"errors"
)

var errMiniaudioUnavailable = errors.New("miniaudio backend requires a cgo build")

func listMiniaudioDevices(_ context.Context) ([]Device, error) {
	return nil, errMiniaudioUnavailable
}

func startMiniaudio(_ *Capture) error {
	return errMiniaudioUnavailable
}

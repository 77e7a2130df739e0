package session

import (
	"context"
	"errors"

	"github.com/leonardotrapani/hyprlive/internal/live"
	"github.com/leonardotrapani/hyprlive/internal/recording"
)

// ErrNotIdle is returned by Start while a conversation is already running
// or the controller is in Error and has not been stopped yet.
var ErrNotIdle = errors.New("session is not idle")

// ErrNotConfigured is returned by Start when no capture device or dialer is set.
var ErrNotConfigured = errors.New("session has no microphone or voice service configured")

// Explain turns a session error into a short sentence for the user.
func Explain(err error) string {
	var ce *live.ChannelError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "No voice service is configured. Run hyprlive configure."
	case errors.Is(err, recording.ErrPermissionDenied):
		return "Microphone access was denied. Allow access and try again."
	case errors.Is(err, recording.ErrDeviceUnavailable):
		return "No microphone is available. Connect one and try again."
	case errors.Is(err, context.DeadlineExceeded):
		return "The voice service did not answer in time. Try again."
	case errors.As(err, &ce) && ce.Op == "connect":
		return "Could not reach the voice service. Check your connection and API key, then try again."
	case errors.As(err, &ce):
		return "The connection to the voice service was lost. Start again to reconnect."
	default:
		return "Something went wrong. Try again."
	}
}

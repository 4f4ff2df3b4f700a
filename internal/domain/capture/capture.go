package capture

import (
	"context"
	"image"
)

// FacingMode mirrors the camera orientation requested from a provider.
type FacingMode string

const (
	// FacingUser is the self-facing camera; captured frames are mirrored.
	FacingUser FacingMode = "user"
	// FacingEnvironment is the world-facing camera.
	FacingEnvironment FacingMode = "environment"
)

// Toggle returns the opposite facing mode.
func (m FacingMode) Toggle() FacingMode {
	if m == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Constraints describe the stream being requested. A zero Facing means the
// provider may pick any available camera (the relaxed retry request).
type Constraints struct {
	Facing FacingMode
}

// Stream is a live camera feed. It must be stopped when no longer needed.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// StreamProvider acquires camera streams. Implementations classify failures
// as *CaptureError so callers can react per kind.
type StreamProvider interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Archive durably stores captured frames out of band. Failures never block
// the capture pipeline.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) error
}

// NoopArchive discards every frame.
type NoopArchive struct{}

func (NoopArchive) Put(context.Context, string, []byte, string) error { return nil }

package capture

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"
	"sync"
)

// Config bounds the photo pipeline.
type Config struct {
	MaxDimension int
	JPEGQuality  int
}

// Service owns one scoped camera stream and turns frames or uploaded files
// into bounded base64 JPEG images.
type Service struct {
	cfg      Config
	provider StreamProvider
	logger   *slog.Logger

	mu     sync.Mutex
	stream Stream
	facing FacingMode
}

// NewService constructs a capture service. The provider may be nil when no
// live camera is configured; only the file paths work in that mode.
func NewService(cfg Config, provider StreamProvider, logger *slog.Logger) *Service {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1280
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 80
	}
	return &Service{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With("component", "capture.service"),
	}
}

// Open acquires a live stream with the requested facing mode. A failed
// acquisition is retried once without constraints before surfacing the
// classified error.
func (s *Service) Open(ctx context.Context, facing FacingMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
	return s.acquireLocked(ctx, facing)
}

// Facing reports the active facing mode.
func (s *Service) Facing() FacingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

// ToggleFacing stops the current stream and re-acquires with the opposite
// facing mode. The old stream is always released, even when the new
// acquisition fails.
func (s *Service) ToggleFacing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.facing.Toggle()
	s.releaseLocked()
	return s.acquireLocked(ctx, next)
}

// TakePhoto rasterizes the current frame. Frames captured while facing the
// user are mirrored so embedded text reads correctly.
func (s *Service) TakePhoto(ctx context.Context) (string, error) {
	s.mu.Lock()
	stream := s.stream
	facing := s.facing
	s.mu.Unlock()

	if stream == nil {
		return "", NewError(KindOther, "no active camera stream", nil)
	}
	frame, err := stream.Frame(ctx)
	if err != nil {
		return "", asCaptureError(err)
	}
	if facing == FacingUser {
		frame = mirrorHorizontal(frame)
	}
	return s.encode(frame)
}

// FromReader reads a user-selected image file into the shared encoding.
// This is the fallback path when live capture is unavailable.
func (s *Service) FromReader(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", NewError(KindOther, "unreadable image file", err)
	}
	return s.encode(img)
}

// FromDataURI normalizes an already-encoded image through the same bounds.
func (s *Service) FromDataURI(src string) (string, error) {
	data, _, err := DecodeDataURI(src)
	if err != nil {
		return "", NewError(KindOther, "unreadable image payload", err)
	}
	return s.FromReader(bytes.NewReader(data))
}

// Close releases the stream. Safe to call on every exit path.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

func (s *Service) acquireLocked(ctx context.Context, facing FacingMode) error {
	if s.provider == nil {
		return NewError(KindUnsupported, "no camera provider configured", nil)
	}
	stream, err := s.provider.Acquire(ctx, Constraints{Facing: facing})
	if err != nil {
		s.logger.Warn("camera acquisition failed, retrying unconstrained", "facing", string(facing), "error", err)
		stream, err = s.provider.Acquire(ctx, Constraints{})
		if err != nil {
			return asCaptureError(err)
		}
	}
	s.stream = stream
	s.facing = facing
	return nil
}

func (s *Service) releaseLocked() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream = nil
	}
}

func (s *Service) encode(frame image.Image) (string, error) {
	bounded := clampToFit(frame, s.cfg.MaxDimension)
	src, err := encodeDataURI(bounded, s.cfg.JPEGQuality)
	if err != nil {
		return "", NewError(KindOther, "encode capture", err)
	}
	return src, nil
}

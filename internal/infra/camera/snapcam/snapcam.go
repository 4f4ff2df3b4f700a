// Package snapcam acquires camera streams from HTTP snapshot endpoints, the
// kind exposed by IP cameras and phone camera bridge apps.
package snapcam

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mealsnap/mealsnap/internal/domain/capture"
)

// Provider maps facing modes onto snapshot URLs.
type Provider struct {
	frontURL   string
	backURL    string
	httpClient *http.Client
}

// NewProvider builds a provider. Either URL may be empty; Enabled reports
// whether any camera is reachable at all.
func NewProvider(frontURL, backURL string) *Provider {
	return &Provider{
		frontURL: strings.TrimSpace(frontURL),
		backURL:  strings.TrimSpace(backURL),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether at least one snapshot URL is configured.
func (p *Provider) Enabled() bool {
	return p.frontURL != "" || p.backURL != ""
}

// Acquire validates the endpoint for the requested facing mode and returns a
// stream over it. Failures are classified for the capture adapter.
func (p *Provider) Acquire(ctx context.Context, c capture.Constraints) (capture.Stream, error) {
	endpoint, err := p.resolve(c)
	if err != nil {
		return nil, err
	}
	if _, err := p.fetch(ctx, endpoint); err != nil {
		return nil, err
	}
	return &snapshotStream{provider: p, endpoint: endpoint}, nil
}

func (p *Provider) resolve(c capture.Constraints) (string, error) {
	switch c.Facing {
	case capture.FacingUser:
		if p.frontURL != "" {
			return p.frontURL, nil
		}
		return "", capture.NewError(capture.KindNotFound, "no front camera configured", nil)
	case capture.FacingEnvironment:
		if p.backURL != "" {
			return p.backURL, nil
		}
		return "", capture.NewError(capture.KindNotFound, "no back camera configured", nil)
	default:
		// Relaxed request: any configured camera will do.
		if p.backURL != "" {
			return p.backURL, nil
		}
		if p.frontURL != "" {
			return p.frontURL, nil
		}
		return "", capture.NewError(capture.KindNotFound, "no camera configured", nil)
	}
}

func (p *Provider) fetch(ctx context.Context, endpoint string) (image.Image, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, capture.NewError(capture.KindUnsupported, "unsupported camera endpoint", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, capture.NewError(capture.KindOther, "build snapshot request", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, capture.NewError(capture.KindOther, "snapshot request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, capture.NewError(capture.KindPermissionDenied, "camera endpoint refused access", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, capture.NewError(capture.KindNotFound, "camera endpoint not found", nil)
	case resp.StatusCode >= 300:
		return nil, capture.NewError(capture.KindOther, fmt.Sprintf("snapshot request error: status=%d", resp.StatusCode), nil)
	}

	frame, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, capture.NewError(capture.KindOther, "decode snapshot", err)
	}
	return frame, nil
}

// snapshotStream fetches a fresh still per frame request. There is no
// long-lived device handle to release, so Stop only marks the stream dead.
type snapshotStream struct {
	provider *Provider
	endpoint string
	stopped  bool
}

func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	if s.stopped {
		return nil, capture.NewError(capture.KindOther, "stream already stopped", nil)
	}
	return s.provider.fetch(ctx, s.endpoint)
}

func (s *snapshotStream) Stop() {
	s.stopped = true
}

var _ capture.StreamProvider = (*Provider)(nil)

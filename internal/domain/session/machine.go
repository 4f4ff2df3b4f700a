package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mealsnap/mealsnap/internal/domain/analysis"
	"github.com/mealsnap/mealsnap/internal/domain/capture"
	"github.com/mealsnap/mealsnap/internal/domain/history"
	apperrors "github.com/mealsnap/mealsnap/pkg/errors"
	"github.com/mealsnap/mealsnap/pkg/util"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Config tunes the session machine.
type Config struct {
	IdleTTL        time.Duration
	AnalyzeTimeout time.Duration
}

// CaptureFactory builds the per-session capture service.
type CaptureFactory func() *capture.Service

// Machine owns every client session and drives state transitions. Events for
// a session are applied atomically, in arrival order, under its own lock.
type Machine struct {
	cfg      Config
	analyzer analysis.Service
	history  *history.Service
	archive  capture.Archive
	factory  CaptureFactory
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionHandle
}

type sessionHandle struct {
	mu         sync.Mutex
	state      State
	capture    *capture.Service
	cameraOpen bool
	lastSeen   time.Time
}

// NewMachine wires up the session domain.
func NewMachine(cfg Config, analyzer analysis.Service, hist *history.Service, archive capture.Archive, factory CaptureFactory, logger *slog.Logger) *Machine {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.AnalyzeTimeout <= 0 {
		cfg.AnalyzeTimeout = 90 * time.Second
	}
	if archive == nil {
		archive = capture.NoopArchive{}
	}
	return &Machine{
		cfg:      cfg,
		analyzer: analyzer,
		history:  hist,
		archive:  archive,
		factory:  factory,
		logger:   logger.With("component", "session.machine"),
		now:      util.NowUTC,
		sessions: make(map[string]*sessionHandle),
	}
}

// Create opens a fresh session at the idle state.
func (m *Machine) Create() (string, State) {
	id := uuid.NewString()
	h := &sessionHandle{state: Initial(), lastSeen: m.now()}
	m.mu.Lock()
	m.cleanupLocked()
	m.sessions[id] = h
	m.mu.Unlock()
	return id, h.state
}

// Lookup returns the current state of a session.
func (m *Machine) Lookup(id string) (State, error) {
	h, err := m.handle(id)
	if err != nil {
		return State{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, nil
}

// Start moves the session from idle into a live capture screen.
func (m *Machine) Start(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, Start{})
}

// Reset discards the current result/error and begins a new capture.
func (m *Machine) Reset(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, Reset{})
}

// Retry leaves the error screen into a fresh capture session.
func (m *Machine) Retry(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, Retry{})
}

// Home returns to the welcome screen.
func (m *Machine) Home(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, Home{})
}

// Back leaves the current screen toward its parent.
func (m *Machine) Back(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, Back{})
}

// ViewHistory opens the history list.
func (m *Machine) ViewHistory(ctx context.Context, id string) (State, error) {
	return m.dispatch(ctx, id, ViewHistory{})
}

// Select shows a past history entry on the result screen.
func (m *Machine) Select(ctx context.Context, id, itemID string) (State, error) {
	item, ok := m.history.Find(ctx, itemID)
	if !ok {
		return State{}, apperrors.Wrap("invalid_input", "history entry not found", nil)
	}
	return m.dispatch(ctx, id, SelectHistory{Item: item})
}

// UploadCapture feeds a client-provided image through the capture pipeline
// and starts analysis. This is the file fallback path of the capture adapter.
func (m *Machine) UploadCapture(ctx context.Context, id, imageSrc string) (State, error) {
	h, err := m.handle(id)
	if err != nil {
		return State{}, err
	}
	h.mu.Lock()
	if h.capture == nil {
		h.capture = m.factory()
	}
	svc := h.capture
	h.mu.Unlock()

	normalized, err := svc.FromDataURI(imageSrc)
	if err != nil {
		return State{}, apperrors.Wrap("invalid_input", "unreadable image payload", err)
	}
	return m.captured(ctx, h, normalized)
}

// TakePhoto rasterizes the live stream's current frame and starts analysis.
func (m *Machine) TakePhoto(ctx context.Context, id string) (State, error) {
	h, err := m.handle(id)
	if err != nil {
		return State{}, err
	}
	h.mu.Lock()
	svc := h.capture
	open := h.cameraOpen
	h.mu.Unlock()

	if svc == nil || !open {
		return State{}, capture.NewError(capture.KindOther, "no active camera stream", nil)
	}
	frame, err := svc.TakePhoto(ctx)
	if err != nil {
		return State{}, err
	}
	return m.captured(ctx, h, frame)
}

// ToggleFacing switches the live stream between front and back cameras.
func (m *Machine) ToggleFacing(ctx context.Context, id string) (State, error) {
	h, err := m.handle(id)
	if err != nil {
		return State{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.capture == nil || !h.cameraOpen {
		return h.state, capture.NewError(capture.KindOther, "no active camera stream", nil)
	}
	if err := h.capture.ToggleFacing(ctx); err != nil {
		h.cameraOpen = false
		h.state = Reduce(h.state, CameraNoticeSet{Notice: CameraNotice(err)})
		return h.state, err
	}
	return h.state, nil
}

// Speech synthesizes the spoken summary of the currently shown result.
func (m *Machine) Speech(ctx context.Context, id string) (analysis.SpeechClip, error) {
	h, err := m.handle(id)
	if err != nil {
		return analysis.SpeechClip{}, err
	}
	h.mu.Lock()
	st := h.state
	h.mu.Unlock()
	if st.Status != StatusResult || !st.CanRenderResult() {
		return analysis.SpeechClip{}, apperrors.Wrap("invalid_input", "no result to speak", nil)
	}
	return m.analyzer.SynthesizeSpeech(ctx, *st.Analysis)
}

func (m *Machine) captured(ctx context.Context, h *sessionHandle, imageSrc string) (State, error) {
	h.mu.Lock()
	prev := h.state
	next := Reduce(prev, Captured{ImageSrc: imageSrc})
	h.state = next
	changed := next.Status == StatusAnalyzing && prev.Status == StatusCamera
	if changed {
		m.reconcileCameraLocked(ctx, h)
	}
	cycle := next.Cycle
	h.lastSeen = m.now()
	h.mu.Unlock()

	if changed {
		m.submitAnalysis(h, cycle, imageSrc)
	}
	return next, nil
}

func (m *Machine) dispatch(ctx context.Context, id string, ev Event) (State, error) {
	h, err := m.handle(id)
	if err != nil {
		return State{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = Reduce(h.state, ev)
	h.lastSeen = m.now()
	m.reconcileCameraLocked(ctx, h)
	return h.state, nil
}

// reconcileCameraLocked keeps the scoped media stream aligned with the
// screen: acquired while on the capture screen, released everywhere else.
func (m *Machine) reconcileCameraLocked(ctx context.Context, h *sessionHandle) {
	if h.state.Status == StatusCamera {
		if h.cameraOpen {
			return
		}
		if h.capture == nil {
			h.capture = m.factory()
		}
		if err := h.capture.Open(ctx, capture.FacingEnvironment); err != nil {
			h.state = Reduce(h.state, CameraNoticeSet{Notice: CameraNotice(err)})
			return
		}
		h.cameraOpen = true
		return
	}
	if h.cameraOpen {
		h.capture.Close()
		h.cameraOpen = false
	}
}

// submitAnalysis runs the remote call without blocking the transition. The
// completion event carries the cycle tag so a stale response is discarded.
func (m *Machine) submitAnalysis(h *sessionHandle, cycle uint64, imageSrc string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.AnalyzeTimeout)
		defer cancel()

		result, err := m.analyzer.Analyze(ctx, imageSrc)
		if err != nil {
			msg := apperrors.MessageOf(err, analysis.FallbackErrorMessage)
			m.applyOutcome(h, AnalysisFailed{Cycle: cycle, Message: msg})
			return
		}

		applied := m.applyOutcome(h, AnalysisSucceeded{Cycle: cycle, Analysis: result, ImageSrc: imageSrc})
		if !applied {
			return
		}
		item := m.history.Save(ctx, result, imageSrc)
		m.archiveFrame(ctx, item)
	}()
}

func (m *Machine) applyOutcome(h *sessionHandle, ev Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.state
	h.state = Reduce(prev, ev)
	return h.state.Status != prev.Status
}

func (m *Machine) archiveFrame(ctx context.Context, item history.HistoryItem) {
	data, mimeType, err := capture.DecodeDataURI(item.ImageSrc)
	if err != nil {
		m.logger.Warn("capture archive skipped", "id", item.ID, "error", err)
		return
	}
	if err := m.archive.Put(ctx, "captures/"+item.ID+".jpg", data, mimeType); err != nil {
		m.logger.Warn("capture archive failed", "id", item.ID, "error", err)
	}
}

func (m *Machine) handle(id string) (*sessionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked()
	h, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return h, nil
}

func (m *Machine) cleanupLocked() {
	now := m.now()
	for id, h := range m.sessions {
		h.mu.Lock()
		expired := now.Sub(h.lastSeen) > m.cfg.IdleTTL
		if expired && h.cameraOpen {
			h.capture.Close()
			h.cameraOpen = false
		}
		h.mu.Unlock()
		if expired {
			delete(m.sessions, id)
		}
	}
}

// CameraNotice maps a capture failure to the localized fallback message.
func CameraNotice(err error) string {
	var capErr *capture.CaptureError
	if !errors.As(err, &capErr) {
		return "无法访问相机，请改用相册上传"
	}
	switch capErr.Kind {
	case capture.KindPermissionDenied:
		return "相机权限被拒绝，请改用相册上传"
	case capture.KindNotFound:
		return "未检测到相机，请改用相册上传"
	case capture.KindUnsupported:
		return "当前环境不支持实时取景，请使用相册上传"
	default:
		return "无法访问相机，请改用相册上传"
	}
}

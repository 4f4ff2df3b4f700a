package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mealsnap/mealsnap/internal/domain/capture"
	"github.com/mealsnap/mealsnap/internal/domain/history"
	"github.com/mealsnap/mealsnap/internal/domain/session"
	apperrors "github.com/mealsnap/mealsnap/pkg/errors"
)

// Handler wires the HTTP transport to the session machine and history cache.
type Handler struct {
	machine    *session.Machine
	historySvc *history.Service
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(machine *session.Machine, historySvc *history.Service, logger *slog.Logger) *Handler {
	return &Handler{
		machine:    machine,
		historySvc: historySvc,
		logger:     logger.With("component", "http.handler"),
	}
}

type sessionResponse struct {
	SessionID string        `json:"sessionId"`
	State     session.State `json:"state"`
}

// CreateSession opens a fresh client session at the welcome screen.
func (h *Handler) CreateSession(c *gin.Context) {
	id, state := h.machine.Create()
	c.JSON(http.StatusCreated, sessionResponse{SessionID: id, State: state})
}

// GetSession returns the current screen state for polling clients.
func (h *Handler) GetSession(c *gin.Context) {
	state, err := h.machine.Lookup(c.Param("id"))
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Intent dispatches the simple navigation intents by name.
func (h *Handler) Intent(intent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		var (
			state session.State
			err   error
		)
		switch intent {
		case "start":
			state, err = h.machine.Start(ctx, id)
		case "reset":
			state, err = h.machine.Reset(ctx, id)
		case "retry":
			state, err = h.machine.Retry(ctx, id)
		case "home":
			state, err = h.machine.Home(ctx, id)
		case "back":
			state, err = h.machine.Back(ctx, id)
		case "history":
			state, err = h.machine.ViewHistory(ctx, id)
		default:
			abortWithError(c, NewHTTPError(http.StatusNotFound, "unknown_intent", "unknown intent", nil))
			return
		}
		if err != nil {
			h.abortSessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}

type captureRequest struct {
	Image string `json:"image" binding:"required"`
}

// Capture accepts a client-encoded image, the file fallback path.
func (h *Handler) Capture(c *gin.Context) {
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	state, err := h.machine.UploadCapture(c.Request.Context(), c.Param("id"), req.Image)
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// TakePhoto rasterizes the live stream's current frame.
func (h *Handler) TakePhoto(c *gin.Context) {
	state, err := h.machine.TakePhoto(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// ToggleFacing flips the live stream between front and back cameras.
func (h *Handler) ToggleFacing(c *gin.Context) {
	state, err := h.machine.ToggleFacing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

type selectRequest struct {
	ID string `json:"id" binding:"required"`
}

// Select shows a past history entry on the result screen.
func (h *Handler) Select(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	state, err := h.machine.Select(c.Request.Context(), c.Param("id"), req.ID)
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// Speech streams the synthesized spoken summary of the shown result as WAV.
func (h *Handler) Speech(c *gin.Context) {
	clip, err := h.machine.Speech(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortSessionError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", clip.WAV())
}

// ListHistory returns cached past analyses, newest first.
func (h *Handler) ListHistory(c *gin.Context) {
	items := h.historySvc.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ClearHistory drops every cached entry.
func (h *Handler) ClearHistory(c *gin.Context) {
	h.historySvc.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *Handler) abortSessionError(c *gin.Context, err error) {
	var capErr *capture.CaptureError
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		abortWithError(c, NewHTTPError(http.StatusNotFound, "session_not_found", "session not found", err))
	case errors.As(err, &capErr):
		// Camera failures are recovered on the capture screen, never fatal.
		abortWithError(c, NewHTTPError(http.StatusConflict, cameraCode(capErr.Kind), session.CameraNotice(err), err))
	case apperrors.IsCode(err, "invalid_input"):
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
	case apperrors.IsCode(err, "speech_error"):
		abortWithError(c, NewHTTPError(http.StatusBadGateway, "speech_error", errMessage(err), err))
	default:
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "internal_error", errMessage(err), err))
	}
}

func cameraCode(kind capture.ErrorKind) string {
	switch kind {
	case capture.KindPermissionDenied:
		return "camera_permission_denied"
	case capture.KindNotFound:
		return "camera_not_found"
	case capture.KindUnsupported:
		return "camera_unsupported"
	default:
		return "camera_error"
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

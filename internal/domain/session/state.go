package session

import (
	"github.com/mealsnap/mealsnap/internal/domain/analysis"
	"github.com/mealsnap/mealsnap/internal/domain/history"
)

// Status names the screen currently owned by a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusCamera    Status = "camera"
	StatusAnalyzing Status = "analyzing"
	StatusResult    Status = "result"
	StatusHistory   Status = "history"
	StatusError     Status = "error"
)

// State is the single source of truth for one client session. It is replaced
// on every event and never persisted; a new session starts at idle.
type State struct {
	Status       Status                 `json:"status"`
	ImageSrc     string                 `json:"imageSrc,omitempty"`
	Analysis     *analysis.FoodAnalysis `json:"analysis,omitempty"`
	ErrorMessage string                 `json:"error,omitempty"`
	HistoryView  bool                   `json:"isHistoryView"`
	CameraNotice string                 `json:"cameraNotice,omitempty"`

	// Cycle tags the active capture so a response from an abandoned cycle
	// cannot overwrite newer state.
	Cycle uint64 `json:"-"`
}

// Initial returns the state a fresh session starts in.
func Initial() State {
	return State{Status: StatusIdle}
}

// CanRenderResult reports whether the result screen has anything to show.
// A result without both image and analysis renders as a no-op, not a crash.
func (s State) CanRenderResult() bool {
	return s.ImageSrc != "" && s.Analysis != nil
}

// Event drives a state transition through Reduce.
type Event interface {
	event()
}

// Start begins a capture session from the welcome screen.
type Start struct{}

// Captured records a rasterized still image and begins analysis.
type Captured struct {
	ImageSrc string
}

// AnalysisSucceeded delivers the remote result for the tagged cycle.
type AnalysisSucceeded struct {
	Cycle    uint64
	Analysis analysis.FoodAnalysis
	ImageSrc string
}

// AnalysisFailed delivers the failure message for the tagged cycle.
type AnalysisFailed struct {
	Cycle   uint64
	Message string
}

// Reset discards the current result and begins a new capture.
type Reset struct{}

// ViewHistory opens the history list from the welcome screen.
type ViewHistory struct{}

// SelectHistory shows a past result; back navigation returns to history.
type SelectHistory struct {
	Item history.HistoryItem
}

// Back leaves the current screen toward its parent.
type Back struct{}

// Retry leaves the error screen into a fresh capture session.
type Retry struct{}

// Home returns to the welcome screen, dropping transient state.
type Home struct{}

// CameraNoticeSet records a localized camera fallback notice on the capture
// screen without leaving it.
type CameraNoticeSet struct {
	Notice string
}

func (Start) event()             {}
func (Captured) event()          {}
func (AnalysisSucceeded) event() {}
func (AnalysisFailed) event()    {}
func (Reset) event()             {}
func (ViewHistory) event()       {}
func (SelectHistory) event()     {}
func (Back) event()              {}
func (Retry) event()             {}
func (Home) event()              {}
func (CameraNoticeSet) event()   {}

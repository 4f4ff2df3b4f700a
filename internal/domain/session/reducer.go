package session

// Reduce applies one event to the state and returns the next state. It is a
// pure function: illegal (state, event) pairs leave the state unchanged, and
// stale analysis outcomes are discarded by the cycle guard.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case Start:
		if s.Status != StatusIdle {
			return s
		}
		return State{Status: StatusCamera, Cycle: s.Cycle}

	case Captured:
		if s.Status != StatusCamera || ev.ImageSrc == "" {
			return s
		}
		return State{
			Status:   StatusAnalyzing,
			ImageSrc: ev.ImageSrc,
			Cycle:    s.Cycle + 1,
		}

	case AnalysisSucceeded:
		if s.Status != StatusAnalyzing || ev.Cycle != s.Cycle {
			return s
		}
		a := ev.Analysis
		return State{
			Status:   StatusResult,
			ImageSrc: s.ImageSrc,
			Analysis: &a,
			Cycle:    s.Cycle,
		}

	case AnalysisFailed:
		if s.Status != StatusAnalyzing || ev.Cycle != s.Cycle {
			return s
		}
		return State{
			Status:       StatusError,
			ErrorMessage: ev.Message,
			Cycle:        s.Cycle,
		}

	case Reset:
		if s.Status != StatusResult && s.Status != StatusError {
			return s
		}
		return State{Status: StatusCamera, Cycle: s.Cycle}

	case ViewHistory:
		if s.Status != StatusIdle {
			return s
		}
		return State{Status: StatusHistory, Cycle: s.Cycle}

	case SelectHistory:
		if s.Status != StatusHistory {
			return s
		}
		a := ev.Item.Analysis
		return State{
			Status:      StatusResult,
			ImageSrc:    ev.Item.ImageSrc,
			Analysis:    &a,
			HistoryView: true,
			Cycle:       s.Cycle,
		}

	case Back:
		switch s.Status {
		case StatusResult:
			if s.HistoryView {
				return State{Status: StatusHistory, Cycle: s.Cycle}
			}
			return State{Status: StatusIdle, Cycle: s.Cycle}
		case StatusHistory, StatusCamera, StatusAnalyzing, StatusError:
			return State{Status: StatusIdle, Cycle: s.Cycle}
		}
		return s

	case Retry:
		if s.Status != StatusError {
			return s
		}
		return State{Status: StatusCamera, Cycle: s.Cycle}

	case Home:
		if s.Status == StatusIdle {
			return s
		}
		return State{Status: StatusIdle, Cycle: s.Cycle}

	case CameraNoticeSet:
		if s.Status != StatusCamera {
			return s
		}
		next := s
		next.CameraNotice = ev.Notice
		return next
	}
	return s
}

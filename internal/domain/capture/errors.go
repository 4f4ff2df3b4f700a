package capture

// ErrorKind classifies camera acquisition failures.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission-denied"
	KindNotFound         ErrorKind = "no-device-found"
	KindUnsupported      ErrorKind = "unsupported-environment"
	KindOther            ErrorKind = "other"
)

// CaptureError is the structured failure surfaced by the capture adapter.
type CaptureError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewError builds a classified capture error.
func NewError(kind ErrorKind, message string, err error) *CaptureError {
	return &CaptureError{Kind: kind, Message: message, Err: err}
}

// asCaptureError coerces any failure into a classified one.
func asCaptureError(err error) *CaptureError {
	if err == nil {
		return nil
	}
	if capErr, ok := err.(*CaptureError); ok {
		return capErr
	}
	return &CaptureError{Kind: KindOther, Message: "camera acquisition failed", Err: err}
}

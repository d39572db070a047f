package dispatch

import "errors"

// Error kinds from spec.md §7. All are local: a diagnostic is logged and
// the dispatcher continues. MissingMetadata is fatal only at construction
// time (internal/axis.New returns axis.ErrMissingMetadata directly); once a
// Device exists, every error here is recovered.
var (
	ErrUnknownAxis       = errors.New("dispatch: unknown axis code")
	ErrUnknownButton     = errors.New("dispatch: unknown button code")
	ErrOutOfRange        = errors.New("dispatch: axis value out of range (clamped)")
	ErrInvalidTransition = errors.New("dispatch: invalid tool transition")
)

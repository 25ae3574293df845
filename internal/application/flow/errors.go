package flow

import "errors"

// ErrNoActiveStep is returned when the next step is requested while loading or done
var ErrNoActiveStep = errors.New("no active step")

package bus

import "errors"

var (
	ErrNilEvent       = errors.New("event is nil")
	ErrNilHandler     = errors.New("event handler is nil")
	ErrEmptyEventType = errors.New("event type is empty")
	ErrHandlerPanic   = errors.New("event handler panicked")
)

package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEvent the payload could not be parsed or lacks a call id. Not retried.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnsupportedEvent the event type is not one the tracker handles. Ignored.
	ErrUnsupportedEvent = errors.New("unsupported event")
)

// IngestError describes why an event was rejected. Kind is one of
// ErrMalformedEvent or ErrUnsupportedEvent.
type IngestError struct {
	Kind      error
	EventType string
	CallID    string
	Err       error
}

func (e *IngestError) Error() string {
	msg := fmt.Sprintf("%v: type=%q", e.Kind, e.EventType)
	if e.CallID != "" {
		msg += fmt.Sprintf(" call=%q", e.CallID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match on the kind.
func (e *IngestError) Is(target error) bool {
	return target == e.Kind
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

func malformed(eventType, callID string, err error) error {
	return &IngestError{Kind: ErrMalformedEvent, EventType: eventType, CallID: callID, Err: err}
}

func unsupported(eventType string) error {
	return &IngestError{Kind: ErrUnsupportedEvent, EventType: eventType}
}

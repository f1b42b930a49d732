package queue

import (
	"encoding/json"
	"time"
)

type EventKind string

const (
	EventStatus           EventKind = "STATUS"
	EventProgress         EventKind = "PROGRESS"
	EventSuccess          EventKind = "SUCCESS"
	EventError            EventKind = "ERROR"
	EventVerificationCode EventKind = "VERIFICATION_CODE"
)

type Event struct {
	OrderID int64
	Kind    EventKind
	Text    string
	At      time.Time
}

// Terminal reports whether no further events follow for the job.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventSuccess, EventError, EventVerificationCode:
		return true
	default:
		return false
	}
}

// String renders the line format browsers parse: KIND:text, or the bare
// text for progress lines coming straight from the device script.
func (e Event) String() string {
	if e.Kind == EventProgress {
		return e.Text
	}
	return string(e.Kind) + ":" + e.Text
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OrderID int64     `json:"order"`
		Type    EventKind `json:"type"`
		Message string    `json:"message"`
		Line    string    `json:"line"`
		At      time.Time `json:"at"`
	}{
		OrderID: e.OrderID,
		Type:    e.Kind,
		Message: e.Text,
		Line:    e.String(),
		At:      e.At,
	})
}

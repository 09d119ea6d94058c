package models

// EventType tags a PushEvent variant.
type EventType string

const (
	EventRateLimit  EventType = "rate_limit"
	EventInProgress EventType = "in_progress"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// PushEvent is one frame of the relay's push stream. Exactly one of the
// optional payload fields is set, depending on Status.
type PushEvent struct {
	Status   EventType     `json:"status"`
	Progress *float64      `json:"progress,omitempty"`
	Result   *AlphaMetrics `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Terminal reports whether no further events follow this one.
func (e *PushEvent) Terminal() bool {
	return e.Status == EventComplete || e.Status == EventError
}

// RateLimitEvent signals an upstream 429. Recoverable; the invocation keeps
// going (continuous mode) or the caller re-requests (single-shot mode).
func RateLimitEvent() *PushEvent {
	return &PushEvent{Status: EventRateLimit}
}

// InProgressEvent carries the job's reported progress.
func InProgressEvent(progress float64) *PushEvent {
	return &PushEvent{Status: EventInProgress, Progress: &progress}
}

// CompleteEvent carries the enriched metrics of a finished alpha.
func CompleteEvent(m *AlphaMetrics) *PushEvent {
	return &PushEvent{Status: EventComplete, Result: m}
}

// ErrorEvent carries a terminal failure message.
func ErrorEvent(msg string) *PushEvent {
	return &PushEvent{Status: EventError, Error: msg}
}

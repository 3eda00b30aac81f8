// internal/notify/notify.go
package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Severity classifies a notification for downstream display.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
	SeveritySuccess  Severity = "SUCCESS"
)

// Event is one structured notification produced by a state transition.
// A nil RecipientHospitalID means broadcast to all hospitals.
type Event struct {
	Title               string
	Message             string
	Severity            Severity
	RecipientHospitalID *uuid.UUID
	ActionRef           string
}

// Emitter accepts events for out-of-band delivery. Implementations are
// fire-and-forget: they must not fail the calling workflow, and callers
// only emit after the originating transition has committed.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Recorder captures emitted events for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

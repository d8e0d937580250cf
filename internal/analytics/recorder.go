package analytics

import (
	"context"
	"sync"
)

// Recorder captures events in memory for tests and diagnostics.
type Recorder struct {
	mu         sync.Mutex
	identified string
	events     []RecordedEvent
}

type RecordedEvent struct {
	Name       string
	Properties Properties
}

var _ Collector = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Identify(_ context.Context, userID string, _ Properties) {
	r.mu.Lock()
	r.identified = userID
	r.mu.Unlock()
}

func (r *Recorder) Track(_ context.Context, event string, properties Properties) {
	r.mu.Lock()
	r.events = append(r.events, RecordedEvent{Name: event, Properties: properties})
	r.mu.Unlock()
}

func (r *Recorder) Reset(_ context.Context) {
	r.mu.Lock()
	r.identified = ""
	r.mu.Unlock()
}

func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}

// EventNames returns the recorded event names in order.
func (r *Recorder) EventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

func (r *Recorder) Identified() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identified
}

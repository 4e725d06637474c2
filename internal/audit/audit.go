// Package audit ships the outcome of each lookup to optional AWS sinks.
// Sinks observe envelopes; they never change them.
package audit

import (
	"context"
	"errors"
	"time"
)

// Outcome classifies one invocation.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// Entry describes a finished invocation.
type Entry struct {
	CEP        string
	RequestID  string
	Outcome    Outcome
	StatusCode int
	Body       string
	At         time.Time
	Latency    time.Duration
}

// Sink records entries somewhere durable.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Fanout sends every entry to each sink in order. One failing sink does not
// stop the others.
type Fanout []Sink

// Record implements Sink.
func (f Fanout) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func objectID(e Entry) string {
	if e.RequestID != "" {
		return e.RequestID
	}
	return e.At.UTC().Format("20060102T150405.000000000Z")
}

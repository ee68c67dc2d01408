// Package telemetry records item interactions such as clicks on feed rows.
//
// The feed does not define what a sink does with an event. LogSink writes
// events through zerolog; custom sinks implement Sink or use SinkFunc.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var interactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feed_item_interactions_total",
		Help: "Total item interactions recorded by kind",
	},
	[]string{"kind"},
)

// Event is one item interaction.
type Event struct {
	ID       uuid.UUID
	Kind     string
	ItemID   string
	Metadata map[string]string
	At       time.Time
}

// NewEvent returns an Event with a fresh ID stamped at now.
func NewEvent(kind, itemID string, metadata map[string]string, now time.Time) Event {
	return Event{
		ID:       uuid.New(),
		Kind:     kind,
		ItemID:   itemID,
		Metadata: metadata,
		At:       now,
	}
}

// Sink receives interaction events. Record must not block for long; it is
// called on the caller's goroutine.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, e Event) {
	f(ctx, e)
}

type nop struct{}

func (nop) Record(context.Context, Event) {}

// Nop returns a Sink that discards events.
func Nop() Sink {
	return nop{}
}

// LogSink writes each event as an info line.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a LogSink writing to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Record implements Sink.
func (s *LogSink) Record(_ context.Context, e Event) {
	ev := s.logger.Info().
		Str("event_id", e.ID.String()).
		Str("kind", e.Kind).
		Str("item_id", e.ItemID).
		Time("at", e.At)
	if len(e.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range e.Metadata {
			dict = dict.Str(k, v)
		}
		ev = ev.Dict("metadata", dict)
	}
	ev.Msg("Item interaction")
}

// Counting wraps next and counts every event by kind. A sink that already
// counts is returned unchanged.
func Counting(next Sink) Sink {
	if next == nil {
		next = Nop()
	}
	if c, ok := next.(countingSink); ok {
		return c
	}
	return countingSink{next: next}
}

type countingSink struct {
	next Sink
}

func (c countingSink) Record(ctx context.Context, e Event) {
	interactionsTotal.WithLabelValues(e.Kind).Inc()
	c.next.Record(ctx, e)
}

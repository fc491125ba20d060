package ledger

import (
	"log/slog"
	"sync"

	"herbledger/pkg/domain"
)

// nopSink drops all events. Installed when no sink is configured.
type nopSink struct{}

func (nopSink) Publish(domain.Event) {}

// CollectingSink buffers published events in memory. Intended for tests and
// for callers that drain events themselves.
type CollectingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewCollectingSink constructs an empty collecting sink.
func NewCollectingSink() *CollectingSink {
	return &CollectingSink{}
}

// Publish appends the event to the buffer.
func (s *CollectingSink) Publish(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything published so far, in publish order.
func (s *CollectingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// Reset discards buffered events.
func (s *CollectingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// SlogSink publishes events as structured log lines.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink constructs a sink writing to logger (slog.Default when nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Publish logs the event with its payload flattened into attributes.
func (s *SlogSink) Publish(ev domain.Event) {
	attrs := make([]any, 0, 4+2*len(ev.Payload))
	attrs = append(attrs, "event", string(ev.Type), "batch_id", ev.BatchID)
	for k, v := range ev.Payload {
		attrs = append(attrs, k, v)
	}
	s.logger.Info("ledger event", attrs...)
}

var (
	_ domain.EventSink = nopSink{}
	_ domain.EventSink = (*CollectingSink)(nil)
	_ domain.EventSink = (*SlogSink)(nil)
)

package events

import (
	"log/slog"
	"sync"
)

// Sink observes events. Implementations must not block the caller for long
// and must never fail it: a sink that cannot deliver drops the event.
type Sink interface {
	Record(e Event)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(Event)

// Record calls f(e).
func (f SinkFunc) Record(e Event) { f(e) }

type nop struct{}

func (nop) Record(Event) {}

// Nop is the sink used when no observer is configured.
var Nop Sink = nop{}

// Multi fans each event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var live []Sink
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return Nop
	case 1:
		return live[0]
	}
	return multi(live)
}

// RunScoped is implemented by sinks that tag events with the pass they
// belong to.
type RunScoped interface {
	ForRun(runID string) Sink
}

type multi []Sink

func (m multi) Record(e Event) {
	for _, s := range m {
		s.Record(e)
	}
}

// ForRun scopes every member that supports it.
func (m multi) ForRun(runID string) Sink {
	out := make(multi, len(m))
	for i, s := range m {
		if scoped, ok := s.(RunScoped); ok {
			out[i] = scoped.ForRun(runID)
			continue
		}
		out[i] = s
	}
	return out
}

// Recorder keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Rejections counts recorded events that stand for skipped rows.
func (r *Recorder) Rejections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.IsRejection() {
			n++
		}
	}
	return n
}

// LoggerSink writes events to a structured logger. Rejections and external
// errors are logged at warn, lifecycle events at info.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a sink backed by logger.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Record writes the event to the logger.
func (s *LoggerSink) Record(e Event) {
	if s == nil || s.logger == nil {
		return
	}
	attrs := Attrs(e)
	if e.Kind == KindStartOfLogger || e.Kind == KindProcessComplete {
		s.logger.Info(e.Message(), attrs...)
		return
	}
	s.logger.Warn(e.Message(), attrs...)
}

// Attrs returns the slog attributes describing e.
func Attrs(e Event) []any {
	attrs := []any{slog.String("event", string(e.Kind))}
	switch e.Kind {
	case KindAmountNegative, KindTxIDExists, KindTxNotFound, KindTxNotDisputed:
		attrs = append(attrs, slog.Any("tx", e.TxID))
	case KindInsufficientFunds, KindUnauthorisedTx:
		attrs = append(attrs, slog.Any("client", e.Client), slog.Any("tx", e.TxID))
	case KindUnrecognisedTx:
		attrs = append(attrs, slog.Int("row", e.Row), slog.String("type", e.TxType))
	}
	return attrs
}

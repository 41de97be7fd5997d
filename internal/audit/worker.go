package audit

import (
	"context"
	"log/slog"
)

// Worker drains audit events from a channel into a sink so domain code never
// blocks on the sink's latency. Events are dropped with a log line when the
// sink fails; auditing must not take the request path down with it.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// BufferedSink queues events for a Worker to drain. Append never blocks:
// when the buffer is full the event is dropped with a warning, since audit
// delivery is best effort.
type BufferedSink struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewBufferedSink(size int, logger *slog.Logger) *BufferedSink {
	return &BufferedSink{inbox: make(chan Event, size), logger: logger}
}

func (s *BufferedSink) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		s.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject_id", event.SubjectID,
		)
		return nil
	}
}

// Inbox exposes the drain side for the Worker.
func (s *BufferedSink) Inbox() <-chan Event { return s.inbox }

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"action", event.Action,
					"subject_id", event.SubjectID,
					"error", err,
				)
			}
		}
	}
}

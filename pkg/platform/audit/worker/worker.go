package worker

import (
	"context"
	"log/slog"

	audit "signup/pkg/platform/audit"
)

// Worker drains queued audit events into a store until its inbox is closed.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox closes. Failed appends are logged and
// skipped so one bad event cannot stall the queue. The context bounds each
// append, not the loop.
func (w *Worker) Run(ctx context.Context) (persisted, failed int) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "failed to persist audit event",
				"action", event.Action,
				"registration_id", event.RegistrationID,
				"error", err,
			)
			continue
		}
		persisted++
	}
	return persisted, failed
}

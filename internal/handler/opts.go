package handler

import (
	"log/slog"
	"time"

	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/handler/processor"
)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTimestampTolerance sets the maximum accepted age of a delivery. Zero disables the replay check.
func WithTimestampTolerance(tolerance time.Duration) Option {
	return func(h *Handler) {
		h.tolerance = tolerance
	}
}

// WithArchive uploads verified agent session payloads to bucket under prefix, in the background on scheduler.
func WithArchive(archiver processor.Archiver, scheduler dispatch.Scheduler, bucket, prefix string) Option {
	return func(h *Handler) {
		h.archiver = archiver
		h.scheduler = scheduler
		h.archiveBucket = bucket
		h.archivePrefix = prefix
	}
}

package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
)

// Archiver stores objects in a bucket. It is implemented by *aws.Controller.
type Archiver interface {
	PutS3Object(ctx context.Context, key string, bucket string, body []byte) error
}

type s3ArchiverPostProcessor struct {
	logger    *slog.Logger
	archiver  Archiver
	scheduler dispatch.Scheduler
	bucket    string
	prefix    string
	now       func() time.Time
}

// NewS3ArchiverPostProcessor uploads verified agent session payloads to bucket in the background.
// Upload failures are logged and never change the response.
func NewS3ArchiverPostProcessor(archiver Archiver, scheduler dispatch.Scheduler, bucket, prefix string, opts ...Option) Processor {
	_inst := &s3ArchiverPostProcessor{
		archiver:  archiver,
		scheduler: scheduler,
		bucket:    bucket,
		prefix:    prefix,
		now:       time.Now,
		logger:    helpers.NewNoopLogger(),
	}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *s3ArchiverPostProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("post-processor:archiver")
}

func (p *s3ArchiverPostProcessor) Process(ctx context.Context, bus *ingest.Bus) error {
	e := bus.Event()
	if e == nil || p.bucket == "" {
		return nil
	}
	key := fmt.Sprintf("%s%s/%s.%s.json", p.prefix, e.OrganizationID, p.now().UTC().Format(time.RFC3339Nano), e.SessionID)
	body := bus.Body
	p.scheduler.Go(ctx, "archive:"+e.SessionID, func(ctx context.Context) {
		if err := p.archiver.PutS3Object(ctx, key, p.bucket, body); err != nil {
			p.logger.Warn("failed to archive webhook payload", slog.String("key", key), slog.Any("error", err))
			return
		}
		p.logger.Debug("archived webhook payload", slog.String("key", key))
	})
	return nil
}

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/noah-isme/civic-archive-api/pkg/jobs"
	"github.com/noah-isme/civic-archive-api/pkg/storage"
)

// JobTypeThumbnail identifies thumbnail jobs on the queue.
const JobTypeThumbnail = "thumbnail"

type thumbnailRecorder interface {
	SetThumbnail(ctx context.Context, id, key string) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ThumbnailPayload names the entry and stored image to preview.
type ThumbnailPayload struct {
	EntryID string
	Key     string
}

// ThumbnailService renders JPEG previews of image entries in the background.
type ThumbnailService struct {
	store   storage.Store
	repo    thumbnailRecorder
	queue   jobEnqueuer
	maxEdge int
	metrics *MetricsService
	logger  *zap.Logger
}

// NewThumbnailService constructs the service. Attach a queue with SetQueue before scheduling.
func NewThumbnailService(store storage.Store, repo thumbnailRecorder, maxEdge int, metrics *MetricsService, logger *zap.Logger) *ThumbnailService {
	if maxEdge <= 0 {
		maxEdge = 320
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThumbnailService{store: store, repo: repo, maxEdge: maxEdge, metrics: metrics, logger: logger}
}

// SetQueue attaches the queue that runs Process.
func (s *ThumbnailService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Schedule enqueues a preview job. A full queue drops the job with a warning.
func (s *ThumbnailService) Schedule(entryID, key string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		ID:       entryID,
		Type:     JobTypeThumbnail,
		Payload:  ThumbnailPayload{EntryID: entryID, Key: key},
		Enqueued: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordThumbnailJob("dropped")
		s.logger.Warn("thumbnail job not queued", zap.String("entry_id", entryID), zap.Error(err))
	}
}

// Process is the queue handler. Errors that cannot succeed on retry are marked permanent.
func (s *ThumbnailService) Process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ThumbnailPayload)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}

	rc, _, err := s.store.Open(ctx, payload.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return fmt.Errorf("open image: %w", err)
	}
	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	rc.Close() //nolint:errcheck
	if err != nil {
		return jobs.Permanent(fmt.Errorf("decode image: %w", err))
	}

	thumb := imaging.Fit(img, s.maxEdge, s.maxEdge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return jobs.Permanent(fmt.Errorf("encode thumbnail: %w", err))
	}

	thumbKey := storage.ThumbnailKey(payload.Key)
	if err := s.store.Save(ctx, thumbKey, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}
	if err := s.repo.SetThumbnail(ctx, payload.EntryID, thumbKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.store.Delete(ctx, thumbKey)
			return jobs.Permanent(fmt.Errorf("entry %s no longer exists", payload.EntryID))
		}
		return fmt.Errorf("record thumbnail: %w", err)
	}
	return nil
}

// Report is the queue's OnResult hook.
func (s *ThumbnailService) Report(job jobs.Job, err error) {
	switch {
	case err == nil:
		s.metrics.RecordThumbnailJob("succeeded")
	case jobs.IsPermanent(err):
		s.metrics.RecordThumbnailJob("dropped")
	default:
		s.metrics.RecordThumbnailJob("failed")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/binyominzeev/vidfaq/internal/collection"
	"github.com/binyominzeev/vidfaq/internal/fetcher"
	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/queue"
	"github.com/binyominzeev/vidfaq/internal/tracing"
	"github.com/binyominzeev/vidfaq/pkg/models"
)

const captionLockTTL = 5 * time.Minute

// CaptionFetcher downloads a caption track
type CaptionFetcher interface {
	FetchCaption(ctx context.Context, sourceURL string) (*models.Caption, error)
}

// EntryUpdater stores fetched transcripts
type EntryUpdater interface {
	UpdateEntry(ctx context.Context, ownerID, id string, upd models.EntryUpdate) (*models.VideoEntry, error)
}

// Locker serializes work on one entry across workers
type Locker interface {
	AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// CaptionWorker processes caption jobs
type CaptionWorker struct {
	captions CaptionFetcher
	entries  EntryUpdater
	views    collection.ViewInvalidator
	locks    Locker
	logger   *logging.Logger
}

// Handle fetches the caption of one entry and stores it as the transcript.
// Missing captions, fetch failures and deleted entries are discarded; store failures are retried.
// A job interrupted by shutdown returns the context error so the delivery is requeued.
func (w *CaptionWorker) Handle(ctx context.Context, job *models.CaptionJob) (err error) {
	span, ctx := tracing.StartSpan(ctx, "caption.fetch")
	tracing.SetTag(span, "entry_id", job.EntryID)
	defer func() {
		tracing.LogError(span, err)
		tracing.FinishSpan(span)
	}()

	log := w.logger.WithOwnerID(job.OwnerID).WithEntryID(job.EntryID)
	start := time.Now()

	if w.locks != nil {
		resource := "caption:" + job.EntryID
		acquired, err := w.locks.AcquireLock(ctx, resource, captionLockTTL)
		if err != nil {
			log.WithError(err).Warn("Caption lock unavailable, continuing without it")
		} else if !acquired {
			return fmt.Errorf("%w: caption already in progress", queue.ErrDiscard)
		} else {
			defer w.locks.ReleaseLock(context.WithoutCancel(ctx), resource)
		}
	}

	w.logger.LogCaptionJob(job.EntryID, "started", map[string]interface{}{"source_url": job.SourceURL})

	caption, err := w.captions.FetchCaption(ctx, job.SourceURL)
	w.logger.LogFetchOperation("caption", job.SourceURL, time.Since(start), err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("caption fetch interrupted: %w", ctxErr)
		}
		if errors.Is(err, fetcher.ErrNoCaptions) {
			w.logger.LogCaptionJob(job.EntryID, "no_captions", nil)
		}
		return fmt.Errorf("%w: %w", queue.ErrDiscard, err)
	}

	_, err = w.entries.UpdateEntry(ctx, job.OwnerID, job.EntryID, models.EntryUpdate{Transcript: &caption.Text})
	if errors.Is(err, collection.ErrNotFound) {
		return fmt.Errorf("%w: entry deleted", queue.ErrDiscard)
	}
	if err != nil {
		return fmt.Errorf("failed to store transcript: %w", err)
	}

	if w.views != nil {
		if err := w.views.InvalidateOwner(ctx, job.OwnerID); err != nil {
			log.WithError(err).Warn("Failed to invalidate public view cache")
		}
	}

	w.logger.LogCaptionJob(job.EntryID, "completed", map[string]interface{}{
		"language":   caption.Language,
		"characters": len(caption.Text),
		"duration":   time.Since(start).String(),
	})
	return nil
}

package workers

import (
	"context"
	"log"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"
)

const (
	// staleAfter — how long an observation may sit in pending_ai before
	// we assume the original enqueue was lost
	staleAfter = 15 * time.Minute
	// requeueBatchSize caps one sweep so a backlog drains gradually
	requeueBatchSize = 50
)

// Enqueuer is the slice of the analysis queue the worker needs.
type Enqueuer interface {
	EnqueueObservation(ctx context.Context, observationID string) error
}

// RequeueWorker re-enqueues observations stranded in pending_ai. The
// enqueue in the submission path is fire-and-forget, so a Redis hiccup can
// leave observations that no pipeline worker will ever pick up; this
// poller is the safety net.
type RequeueWorker struct {
	Store store.Store
	Queue Enqueuer
}

func NewRequeueWorker(st store.Store, queue Enqueuer) *RequeueWorker {
	return &RequeueWorker{Store: st, Queue: queue}
}

// Poll runs sweeps until ctx is cancelled.
func (w *RequeueWorker) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Requeue worker stopping...")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RequeueWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-staleAfter)
	stale, err := w.Store.StaleObservations(ctx, models.ObservationStatusPendingAI, cutoff, requeueBatchSize)
	if err != nil {
		log.Printf("[Requeue] failed to list stale observations: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	requeued := 0
	for _, obs := range stale {
		if err := w.Queue.EnqueueObservation(ctx, obs.ID); err != nil {
			log.Printf("[Requeue] enqueue failed for observation %s: %v", obs.ID, err)
			continue
		}
		// Re-enqueueing the same observation twice is harmless; the
		// pipeline treats processing as idempotent.
		requeued++
	}
	log.Printf("✅ [Requeue] re-enqueued %d stranded observations", requeued)
}

// Package syncer drives the end-to-end mirroring of local calendar events
// to an external CalDAV collection: resolve UID, merge the incoming edit
// against stored state, encode the next iCalendar payload, push it with
// bounded retries, and record the outcome on the event itself.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calmirror/calmirror/event"
	"github.com/calmirror/calmirror/ics"
	"github.com/calmirror/calmirror/internal/httpclient"
	"github.com/calmirror/calmirror/storage"
	"github.com/calmirror/calmirror/uid"
)

var (
	// ErrRejectedByServer marks a 4xx-class rejection: the payload or the
	// credentials are wrong and retrying the same request cannot help.
	ErrRejectedByServer = errors.New("sync rejected by server")
	// ErrSyncExhausted marks a transient failure that outlived the retry
	// budget. The event's local state is kept; a later attempt recomputes
	// from the last acknowledged payload.
	ErrSyncExhausted = errors.New("sync failed after exhausting retries")
)

// Config tunes the outbound push behavior.
type Config struct {
	// CollectionURL is the CalDAV collection the events are mirrored to.
	CollectionURL string
	// MaxAttempts bounds how often a transient failure is retried. Zero
	// selects the default of 3.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt; it doubles
	// per attempt. Zero selects 500ms.
	InitialBackoff time.Duration
	// PushTimeout bounds a single network attempt. Zero selects 10s.
	PushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = 10 * time.Second
	}
	return c
}

// Syncer orchestrates event synchronization. All methods are safe for
// concurrent use; attempts for the same UID are serialized internally.
type Syncer struct {
	store   storage.Storage
	uids    *uid.Allocator
	client  httpclient.HttpClientWrapper
	encoder *ics.Encoder
	logger  *slog.Logger
	cfg     Config
	locks   *keyedLocks

	// sleep is swapped out in tests to keep backoff instantaneous
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Syncer. store, uids and client are mandatory; logger may
// be nil for the default logger.
func New(store storage.Storage, uids *uid.Allocator, client httpclient.HttpClientWrapper, cfg Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:   store,
		uids:    uids,
		client:  client,
		encoder: ics.NewEncoder(),
		logger:  logger,
		cfg:     cfg.withDefaults(),
		locks:   newKeyedLocks(),
		sleep:   sleepCtx,
	}
}

// SyncEvent applies a partial update to the stored event and pushes the
// resulting state to the remote collection. A missing stored record means
// first creation: the partial must then be complete on its own and a UID
// is allocated before anything leaves the process.
//
// The returned record reflects what was persisted: on acknowledgement it
// carries the new sequence and raw payload, on failure the user's merged
// edit with the last acknowledged sequence untouched and LastError set.
func (s *Syncer) SyncEvent(ctx context.Context, localID int64, incoming event.Partial) (*event.Record, error) {
	if localID == 0 {
		return nil, fmt.Errorf("%w: local event id is required", storage.ErrInvalidInput)
	}

	stored, err := s.store.FetchEvent(ctx, localID)
	if errors.Is(err, storage.ErrNotFound) {
		stored = &event.Record{ID: localID, Active: true}
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch event %d: %w", localID, err)
	}

	merged, err := event.Merge(*stored, incoming)
	if err != nil {
		return nil, err
	}

	op := ics.OpUpdate
	if merged.RawICS == "" {
		op = ics.OpCreate
	}

	if merged.UID == "" {
		merged.UID, err = s.uids.GetOrCreate(ctx, localID, merged.CalendarID)
		if err != nil {
			return nil, err
		}
	}

	return s.push(ctx, merged, op)
}

// CancelEvent issues a CANCEL payload for a previously synced event. The
// record is retained for audit and flagged inactive; nothing is deleted
// locally.
func (s *Syncer) CancelEvent(ctx context.Context, localID int64) (*event.Record, error) {
	if localID == 0 {
		return nil, fmt.Errorf("%w: local event id is required", storage.ErrInvalidInput)
	}

	stored, err := s.store.FetchEvent(ctx, localID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %d: %w", localID, err)
	}

	return s.push(ctx, stored.Clone(), ics.OpCancel)
}

// PurgeRemote removes the mirrored object from the remote collection,
// e.g. when a calendar stops being mirrored. The local record survives
// with its remote coordinates cleared.
func (s *Syncer) PurgeRemote(ctx context.Context, localID int64) error {
	stored, err := s.store.FetchEvent(ctx, localID)
	if err != nil {
		return fmt.Errorf("failed to fetch event %d: %w", localID, err)
	}
	if stored.ObjectURL == "" {
		return nil
	}

	lock := s.locks.get(stored.UID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.client.DoDELETE(ctx, stored.ObjectURL, stored.ETag); err != nil {
		return fmt.Errorf("failed to delete remote object: %w", err)
	}

	purged := stored.Clone()
	purged.ObjectURL = ""
	purged.ETag = ""
	if err := s.store.PersistEvent(ctx, &purged); err != nil {
		return fmt.Errorf("failed to persist purged event: %w", err)
	}
	return nil
}

// push takes a merged, UID-complete record through the state machine. The
// per-UID lock is held from encoding until a terminal state so sequence
// numbers are assigned without gaps or races.
func (s *Syncer) push(ctx context.Context, ev event.Record, op ics.Operation) (*event.Record, error) {
	lock := s.locks.get(ev.UID)
	lock.Lock()
	defer lock.Unlock()

	// re-read the acknowledged state under the lock: another attempt for
	// this UID may have advanced it between merge and now, and sequence
	// numbers must be derived from the latest acknowledged payload
	if fresh, err := s.store.FetchEvent(ctx, ev.ID); err == nil {
		ev.RawICS = fresh.RawICS
		ev.Sequence = fresh.Sequence
		ev.ETag = fresh.ETag
		ev.ObjectURL = fresh.ObjectURL
	}

	log := s.logger.With("uid", ev.UID, "event_id", ev.ID, "operation", op.String())
	log.Debug("state transition", "state", StateEncoding.String())

	if op != ics.OpCancel && ev.RawICS != "" {
		op = ics.OpUpdate
	}

	payload, err := s.encoder.Encode(ev, op, ev.RawICS)
	if err != nil {
		return nil, err
	}

	if ev.ObjectURL == "" {
		ev.ObjectURL, err = httpclient.NewObjectURL(s.cfg.CollectionURL)
		if err != nil {
			return nil, err
		}
	}

	log.Debug("state transition", "state", StateSending.String(), "object_url", ev.ObjectURL)

	newEtag, sendErr := s.send(ctx, log, ev.ObjectURL, ev.ETag, payload)
	if sendErr != nil {
		log.Warn("state transition",
			"state", StateFailed.String(),
			"error", sendErr)
		return s.recordFailure(ctx, ev, sendErr)
	}

	seq, _ := ics.ExtractSequence(payload)
	ev.Sequence = seq
	ev.RawICS = payload
	ev.ETag = newEtag
	ev.Active = op != ics.OpCancel
	ev.SyncStatus = event.SyncStatus{LastSentAt: time.Now(), LastError: ""}

	if err := s.store.PersistEvent(ctx, &ev); err != nil {
		return nil, fmt.Errorf("failed to persist acknowledged event: %w", err)
	}

	log.Info("state transition",
		"state", StateAcknowledged.String(),
		"sequence", seq)
	return &ev, nil
}

// send pushes the payload with bounded exponential backoff. 4xx-class
// rejections abort immediately; network errors, timeouts and 5xx responses
// are retried until the attempt budget runs out.
func (s *Syncer) send(ctx context.Context, log *slog.Logger, objectURL, etag, payload string) (newEtag string, err error) {
	backoff := s.cfg.InitialBackoff

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
		newEtag, err = s.client.DoPUT(attemptCtx, objectURL, etag, []byte(payload))
		cancel()

		if err == nil {
			if newEtag == "" {
				// some servers omit the etag on PUT; recover it so the
				// next update can use optimistic locking
				newEtag, _ = s.client.DoGetEtag(ctx, objectURL)
			}
			return newEtag, nil
		}

		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return "", fmt.Errorf("%w: %v", ErrRejectedByServer, err)
		}

		log.Debug("push attempt failed",
			"attempt", attempt,
			"max_attempts", s.cfg.MaxAttempts,
			"error", err)

		if attempt == s.cfg.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, backoff); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSyncExhausted, err)
		}
		backoff *= 2
	}

	return "", fmt.Errorf("%w: %v", ErrSyncExhausted, err)
}

// recordFailure annotates the failure on the record without touching the
// acknowledged sequence and payload, so the next attempt recomputes from
// known-good history. The user's merged edit itself is kept: a failed push
// never rolls back local state.
func (s *Syncer) recordFailure(ctx context.Context, ev event.Record, sendErr error) (*event.Record, error) {
	ev.SyncStatus.LastError = sendErr.Error()

	if err := s.store.PersistEvent(ctx, &ev); err != nil {
		s.logger.Error("failed to persist sync failure",
			"event_id", ev.ID,
			"error", err)
	}
	return &ev, sendErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

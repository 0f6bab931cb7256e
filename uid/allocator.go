package uid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/calmirror/calmirror/storage"
)

// Allocator resolves the UID for a local event, minting and persisting one
// on first use. Concurrent first-time allocation for the same local id is
// safe: exactly one mapping wins, losers resolve to the winner's UID.
type Allocator struct {
	store  MappingStore
	domain string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithDomain overrides the host part of generated UIDs.
func WithDomain(domain string) AllocatorOption {
	return func(a *Allocator) { a.domain = domain }
}

// WithLogger sets the allocator's logger.
func WithLogger(logger *slog.Logger) AllocatorOption {
	return func(a *Allocator) { a.logger = logger }
}

// NewAllocator creates an allocator over the given mapping store.
func NewAllocator(store MappingStore, opts ...AllocatorOption) *Allocator {
	a := &Allocator{
		store:  store,
		domain: DefaultDomain,
		logger: slog.Default(),
		locks:  make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Get returns the previously stored UID for a local event id, or
// storage.ErrNotFound.
func (a *Allocator) Get(ctx context.Context, localID int64) (string, error) {
	if localID == 0 {
		return "", fmt.Errorf("%w: local event id is required", storage.ErrInvalidInput)
	}
	return a.store.Lookup(ctx, localID)
}

// Store persists an externally supplied mapping, e.g. when importing
// events that already carry a UID.
func (a *Allocator) Store(ctx context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || calendarID == 0 {
		return fmt.Errorf("%w: local event id and calendar id are required", storage.ErrInvalidInput)
	}
	if err := Validate(uid); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	return a.store.Save(ctx, localID, uid, calendarID)
}

// GetOrCreate returns the UID for a local event, minting and persisting a
// fresh one when none exists yet. Callers racing on the same local id all
// observe the same UID afterward: in-process racers are serialized by a
// per-id lock, cross-process racers lose the insert and re-read the winner.
func (a *Allocator) GetOrCreate(ctx context.Context, localID, calendarID int64) (string, error) {
	if localID == 0 || calendarID == 0 {
		return "", fmt.Errorf("%w: local event id and calendar id are required", storage.ErrInvalidInput)
	}

	lock := a.lockFor(localID)
	lock.Lock()
	defer lock.Unlock()

	uid, err := a.store.Lookup(ctx, localID)
	if err == nil {
		return uid, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to look up uid mapping: %w", err)
	}

	uid = GenerateWithDomain(a.domain)
	err = a.store.Save(ctx, localID, uid, calendarID)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// another writer got there first; their mapping is the truth
		winner, lookupErr := a.store.Lookup(ctx, localID)
		if lookupErr != nil {
			return "", fmt.Errorf("failed to re-read winning uid mapping: %w", lookupErr)
		}
		a.logger.Debug("lost uid allocation race, adopting winner",
			"local_id", localID,
			"uid", winner)
		return winner, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to persist uid mapping: %w", err)
	}

	a.logger.Debug("allocated uid",
		"local_id", localID,
		"calendar_id", calendarID,
		"uid", uid)
	return uid, nil
}

func (a *Allocator) lockFor(localID int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[localID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[localID] = lock
	}
	return lock
}

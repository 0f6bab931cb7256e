package uid

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/calmirror/calmirror/storage"
)

// MappingStore is the capability the allocator needs from a persistence
// tier. Implementations report misses with storage.ErrNotFound and
// first-writer-wins conflicts with storage.ErrAlreadyExists.
type MappingStore interface {
	Lookup(ctx context.Context, localID int64) (string, error)
	Save(ctx context.Context, localID int64, uid string, calendarID int64) error
}

// DurableStore adapts the application's storage collaborator to the
// MappingStore capability. This is the primary tier.
type DurableStore struct {
	st storage.Storage
}

// NewDurableStore wraps a storage backend as a mapping tier.
func NewDurableStore(st storage.Storage) *DurableStore {
	return &DurableStore{st: st}
}

func (d *DurableStore) Lookup(ctx context.Context, localID int64) (string, error) {
	return d.st.FetchUIDMapping(ctx, localID)
}

func (d *DurableStore) Save(ctx context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || uid == "" || calendarID == 0 {
		return storage.ErrInvalidInput
	}
	return d.st.StoreUIDMapping(ctx, localID, uid, calendarID)
}

// BoundedCapacity is the number of mappings the bounded tier retains.
const BoundedCapacity = 100

// BoundedStore is a size-capped rolling in-memory tier: when full, the
// oldest mapping is evicted. It backs up the durable tier during outages.
type BoundedStore struct {
	mu       sync.Mutex
	capacity int
	order    []int64
	mappings map[int64]string
}

// NewBoundedStore returns a rolling store holding at most capacity
// mappings; capacity <= 0 selects BoundedCapacity.
func NewBoundedStore(capacity int) *BoundedStore {
	if capacity <= 0 {
		capacity = BoundedCapacity
	}
	return &BoundedStore{
		capacity: capacity,
		mappings: make(map[int64]string),
	}
}

func (b *BoundedStore) Lookup(_ context.Context, localID int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	uid, ok := b.mappings[localID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return uid, nil
}

func (b *BoundedStore) Save(_ context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || uid == "" || calendarID == 0 {
		return storage.ErrInvalidInput
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.mappings[localID]; exists {
		return storage.ErrAlreadyExists
	}

	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.mappings, oldest)
	}
	b.order = append(b.order, localID)
	b.mappings[localID] = uid
	return nil
}

// Len reports the number of retained mappings.
func (b *BoundedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mappings)
}

// EphemeralStore is an unbounded in-memory tier of last resort. Mappings
// saved here do not survive a restart; uniqueness is best-effort only.
type EphemeralStore struct {
	mu       sync.Mutex
	mappings map[int64]string
}

// NewEphemeralStore returns an empty ephemeral tier.
func NewEphemeralStore() *EphemeralStore {
	return &EphemeralStore{mappings: make(map[int64]string)}
}

func (e *EphemeralStore) Lookup(_ context.Context, localID int64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	uid, ok := e.mappings[localID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return uid, nil
}

func (e *EphemeralStore) Save(_ context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || uid == "" || calendarID == 0 {
		return storage.ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.mappings[localID]; exists {
		return storage.ErrAlreadyExists
	}
	e.mappings[localID] = uid
	return nil
}

// TieredStore chains a durable primary, a bounded secondary and a final
// ephemeral tier. Lookups consult tiers in order; saves land in the first
// tier that accepts them. Falling past the primary degrades durability,
// which is logged but never surfaced: availability wins over the thin
// failure mode here.
type TieredStore struct {
	primary   MappingStore
	secondary MappingStore
	ephemeral *EphemeralStore
	logger    *slog.Logger
}

// NewTieredStore builds the standard three-tier chain. primary may be nil
// (no durable backend configured); secondary defaults to a BoundedStore.
func NewTieredStore(primary, secondary MappingStore, logger *slog.Logger) *TieredStore {
	if secondary == nil {
		secondary = NewBoundedStore(BoundedCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredStore{
		primary:   primary,
		secondary: secondary,
		ephemeral: NewEphemeralStore(),
		logger:    logger,
	}
}

func (t *TieredStore) Lookup(ctx context.Context, localID int64) (string, error) {
	for _, tier := range t.tiers() {
		uid, err := tier.Lookup(ctx, localID)
		if err == nil {
			return uid, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn("uid mapping tier lookup failed, trying next tier",
				"local_id", localID,
				"error", err)
		}
	}
	return "", storage.ErrNotFound
}

func (t *TieredStore) Save(ctx context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || uid == "" || calendarID == 0 {
		return storage.ErrInvalidInput
	}

	degraded := false
	for _, tier := range t.tiers() {
		err := tier.Save(ctx, localID, uid, calendarID)
		if err == nil {
			if degraded {
				t.logger.Warn("uid mapping persisted on a non-durable tier",
					"local_id", localID,
					"uid", uid)
			}
			return nil
		}
		if errors.Is(err, storage.ErrAlreadyExists) {
			// first writer won on this tier; surface so the caller re-reads
			return err
		}
		degraded = true
		t.logger.Warn("uid mapping tier save failed, falling back",
			"local_id", localID,
			"error", err)
	}
	// the ephemeral tier cannot fail except on conflict, so reaching this
	// point means every tier rejected the save
	return storage.ErrStorageUnavailable
}

func (t *TieredStore) tiers() []MappingStore {
	tiers := make([]MappingStore, 0, 3)
	if t.primary != nil {
		tiers = append(tiers, t.primary)
	}
	if t.secondary != nil {
		tiers = append(tiers, t.secondary)
	}
	tiers = append(tiers, t.ephemeral)
	return tiers
}

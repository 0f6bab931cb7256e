// Package storage defines the contract between the sync engine and the
// application's durable store. The engine only needs record-level access
// keyed by local event id plus the uid mapping table; relational schema,
// ORM and migrations are the embedding application's concern.
package storage

import (
	"context"
	"errors"

	"github.com/calmirror/calmirror/event"
)

var (
	// ErrNotFound is returned when a requested record or mapping doesn't exist
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrAlreadyExists is returned when a conflicting record already exists
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Storage is the interface that must be implemented by storage backends.
// Please use the error values provided; the sync engine branches on them.
type Storage interface {
	// FetchEvent retrieves the canonical record for a local event id.
	FetchEvent(ctx context.Context, id int64) (*event.Record, error)
	// PersistEvent durably writes the record. The engine relies on a
	// single PersistEvent call being atomic: sequence and raw ICS are
	// always written together, never one without the other.
	PersistEvent(ctx context.Context, ev *event.Record) error
	// FetchUIDMapping returns the UID previously stored for a local
	// event id, or ErrNotFound.
	FetchUIDMapping(ctx context.Context, localID int64) (string, error)
	// StoreUIDMapping persists a local-id-to-UID mapping. The first
	// writer for a local id wins; later writers for the same id must
	// receive ErrAlreadyExists so they can re-read the winner's UID.
	StoreUIDMapping(ctx context.Context, localID int64, uid string, calendarID int64) error
}

package domain

import "context"

// BookSnapshotCache stores fetched book snapshots for the short-TTL cache in
// front of the CLOB book endpoint. Get returns ErrNotFound when no fresh
// snapshot exists.
type BookSnapshotCache interface {
	Set(ctx context.Context, tokenID string, snap BookSnapshot) error
	Get(ctx context.Context, tokenID string) (BookSnapshot, error)
}

// BookSource serves possibly-cached book snapshots to the evaluator and the
// paper monitor. A nil-snapshot, non-error result never occurs: missing or
// unfetchable books surface as ErrNotFound.
type BookSource interface {
	GetBook(ctx context.Context, tokenID string) (BookSnapshot, error)
}

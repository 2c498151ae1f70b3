package domain

import "context"

// DocumentStore is the persistence contract consumed by the service layer. A
// store loads and saves the whole document in one call each.
type DocumentStore interface {
	// Load returns the persisted document, seeding one when none exists.
	Load(ctx context.Context) (Document, error)
	// Save persists doc and returns it with its new revision.
	Save(ctx context.Context, doc Document) (Document, error)
	// Reset discards the persisted document.
	Reset(ctx context.Context) error
}

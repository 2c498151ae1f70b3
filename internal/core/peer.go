package core

import (
	"context"

	"aeracore/pkg/domain"
)

// Peer is a remote node that unsynced records are pushed to. It is optional:
// without one, SyncPending only flips the local synced flags.
type Peer interface {
	PushHelpRequest(ctx context.Context, rec domain.HelpRequestRecord) error
	PushReplenishment(ctx context.Context, req domain.ReplenishmentRequest) error
	Health(ctx context.Context) error
}

// reconciledObserver is implemented by metrics recorders that also count
// reconciled records.
type reconciledObserver interface {
	ObserveReconciled(n int)
}

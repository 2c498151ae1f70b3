package core

import (
	"context"
	"time"

	"aeracore/pkg/domain"
)

// pendingSet holds the ids of records awaiting sync.
type pendingSet struct {
	help          map[string]struct{}
	replenishment map[string]struct{}
}

func (p pendingSet) len() int { return len(p.help) + len(p.replenishment) }

// SyncPending marks every unsynced help and replenishment record as synced
// and returns how many were flipped. When nothing is pending it returns 0
// without waiting or writing. Concurrent calls share a single run.
func (s *Service) SyncPending(ctx context.Context) (int, error) {
	v, err, _ := s.syncs.Do("sync", func() (any, error) {
		var n int
		err := s.run(ctx, "sync_pending", "", func(ctx context.Context) (string, error) {
			var err error
			n, err = s.syncPending(ctx)
			return "", err
		})
		return n, err
	})
	n, _ := v.(int)
	return n, err
}

func (s *Service) syncPending(ctx context.Context) (int, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	pending := collectPending(doc)
	if pending.len() == 0 {
		return 0, nil
	}
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	if s.peer != nil {
		s.push(ctx, doc, pending)
	}
	if pending.len() == 0 {
		return 0, nil
	}

	var flipped int
	if _, err := s.runInTransaction(ctx, func(tx *Transaction) error {
		flipped = tx.markSynced(pending)
		return nil
	}); err != nil {
		return 0, err
	}
	if rec, ok := s.metrics.(reconciledObserver); ok {
		rec.ObserveReconciled(flipped)
	}
	s.logger.Info("sync reconciled", "records", flipped)
	return flipped, nil
}

func collectPending(doc domain.Document) pendingSet {
	p := pendingSet{help: map[string]struct{}{}, replenishment: map[string]struct{}{}}
	for _, r := range doc.Requests {
		if !r.Synced {
			p.help[r.ID] = struct{}{}
		}
	}
	for _, r := range doc.ReplenishmentRequests {
		if !r.Synced {
			p.replenishment[r.ID] = struct{}{}
		}
	}
	return p
}

func (s *Service) wait(ctx context.Context) error {
	if s.syncDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.syncDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// push sends each pending record to the peer. Records the peer refuses are
// dropped from pending so they stay unsynced for the next run.
func (s *Service) push(ctx context.Context, doc domain.Document, pending pendingSet) {
	for _, r := range doc.Requests {
		if _, ok := pending.help[r.ID]; !ok {
			continue
		}
		if err := s.peer.PushHelpRequest(ctx, r); err != nil {
			s.logger.Warn("push help request failed", "id", r.ID, "error", err)
			delete(pending.help, r.ID)
		}
	}
	for _, r := range doc.ReplenishmentRequests {
		if _, ok := pending.replenishment[r.ID]; !ok {
			continue
		}
		if err := s.peer.PushReplenishment(ctx, r); err != nil {
			s.logger.Warn("push replenishment failed", "id", r.ID, "error", err)
			delete(pending.replenishment, r.ID)
		}
	}
}

func (tx *Transaction) markSynced(pending pendingSet) int {
	n := 0
	for i := range tx.doc.Requests {
		r := &tx.doc.Requests[i]
		if _, ok := pending.help[r.ID]; !ok || r.Synced {
			continue
		}
		before := *r
		r.Synced = true
		tx.recordUpdate(domain.EntityHelpRequest, r.ID, before, *r)
		n++
	}
	for i := range tx.doc.ReplenishmentRequests {
		r := &tx.doc.ReplenishmentRequests[i]
		if _, ok := pending.replenishment[r.ID]; !ok || r.Synced {
			continue
		}
		before := *r
		r.Synced = true
		tx.recordUpdate(domain.EntityReplenishment, r.ID, before, *r)
		n++
	}
	return n
}

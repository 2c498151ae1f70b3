package core

import (
	"context"
	"time"

	"aeracore/pkg/domain"
)

// Transaction is a working copy of the document plus the changes recorded
// against it. Nothing is persisted until the transaction function returns nil
// and the rules pass.
type Transaction struct {
	doc     domain.Document
	changes []domain.Change
	now     time.Time
	svc     *Service
}

// Now is the timestamp shared by every record touched in the transaction.
func (tx *Transaction) Now() time.Time { return tx.now }

// Document returns a read-only copy of the working document.
func (tx *Transaction) Document() domain.Document { return tx.doc.Clone() }

// Changes returns the changes recorded so far.
func (tx *Transaction) Changes() []domain.Change {
	out := make([]domain.Change, len(tx.changes))
	copy(out, tx.changes)
	return out
}

func (tx *Transaction) recordCreate(entity domain.EntityType, id string, after any) {
	tx.changes = append(tx.changes, domain.Change{
		Entity:   entity,
		Action:   domain.ActionCreate,
		EntityID: id,
		After:    domain.SnapshotOf(after),
	})
}

func (tx *Transaction) recordUpdate(entity domain.EntityType, id string, before, after any) {
	tx.changes = append(tx.changes, domain.Change{
		Entity:   entity,
		Action:   domain.ActionUpdate,
		EntityID: id,
		Before:   domain.SnapshotOf(before),
		After:    domain.SnapshotOf(after),
	})
}

func (tx *Transaction) userIndex(id string) int {
	for i := range tx.doc.Users {
		if tx.doc.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (tx *Transaction) organizationIndex(id string) int {
	for i := range tx.doc.Organizations {
		if tx.doc.Organizations[i].ID == id {
			return i
		}
	}
	return -1
}

func (tx *Transaction) helpRequestIndex(id string) int {
	for i := range tx.doc.Requests {
		if tx.doc.Requests[i].ID == id {
			return i
		}
	}
	return -1
}

func (tx *Transaction) replenishmentIndex(id string) int {
	for i := range tx.doc.ReplenishmentRequests {
		if tx.doc.ReplenishmentRequests[i].ID == id {
			return i
		}
	}
	return -1
}

// setInventory replaces an organization's inventory and records the change.
func (tx *Transaction) setInventory(orgID string, inv domain.OrgInventory) domain.OrgInventory {
	before, existed := tx.doc.Inventories[orgID]
	inv = inv.Sanitize()
	tx.doc.Inventories[orgID] = inv
	if existed {
		tx.recordUpdate(domain.EntityInventory, orgID, before, inv)
	} else {
		tx.recordCreate(domain.EntityInventory, orgID, inv)
	}
	return inv
}

// runInTransaction loads the document, applies fn to a copy, evaluates the
// rules and saves the result. Transactions are serialized within the process.
// A transaction that records no changes is not saved.
func (s *Service) runInTransaction(ctx context.Context, fn func(tx *Transaction) error) (res Result, err error) {
	err = s.locked(ctx, func(ctx context.Context) error {
		res, err = s.transact(ctx, fn)
		return err
	})
	return res, err
}

func (s *Service) transact(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return Result{}, err
	}
	tx := &Transaction{doc: doc.Clone(), now: s.now(), svc: s}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if len(tx.changes) == 0 {
		return Result{}, nil
	}
	res, err := s.engine.Evaluate(ctx, tx.doc, tx.changes)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	for _, w := range res.Warnings() {
		s.logger.Warn("rule warning", "rule", w.Rule, "entity", string(w.Entity), "id", w.EntityID, "message", w.Message)
	}
	if _, err := s.store.Save(ctx, tx.doc); err != nil {
		return res, err
	}
	return res, nil
}

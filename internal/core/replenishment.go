package core

import (
	"context"
	"sort"

	"aeracore/pkg/domain"
)

// StockProposal is a pending stock confirmation: the inventory an org would
// hold after receiving delivered against a request.
type StockProposal struct {
	RequestID string                      `json:"requestId"`
	Request   domain.ReplenishmentRequest `json:"request"`
	Delivered domain.OrgInventory         `json:"delivered"`
	Inventory InventoryDiff               `json:"inventory"`
}

func replenishmentID(r domain.ReplenishmentRequest) string { return r.ID }

func replenishmentNotFound(id string) error {
	return domain.NotFoundError{Entity: domain.EntityReplenishment, ID: id}
}

// SubmitReplenishment files a PENDING resupply request for an organization.
func (s *Service) SubmitReplenishment(ctx context.Context, orgID string, item domain.RequestItem, quantity int) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "submit_replenishment", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		if !item.Valid() {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "item", Reason: "unknown item " + string(item)}
		}
		if quantity <= 0 {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		org, ok := tx.doc.FindOrganization(orgID)
		if !ok {
			return domain.ReplenishmentRequest{}, domain.NotFoundError{Entity: domain.EntityOrganization, ID: orgID}
		}
		provider := org.ReplenishmentProvider
		if provider == "" {
			provider = "Unknown"
		}
		req := domain.ReplenishmentRequest{
			ID:        "RR-" + tx.svc.newID(),
			OrgID:     org.ID,
			OrgName:   org.Name,
			Item:      item,
			Quantity:  quantity,
			Provider:  provider,
			Status:    domain.ReplenishmentPending,
			Timestamp: tx.now,
			Synced:    tx.svc.Online(),
		}
		tx.doc.ReplenishmentRequests = append([]domain.ReplenishmentRequest{req}, tx.doc.ReplenishmentRequests...)
		tx.recordCreate(domain.EntityReplenishment, req.ID, req)
		return req, nil
	})
}

// FulfillReplenishment records a provider's fulfillment. status must be
// APPROVED or FULFILLED. When orgConfirmed is set the delivered quantities are
// added to the organization's inventory; repeating the call adds them again.
func (s *Service) FulfillReplenishment(ctx context.Context, id string, delivered domain.OrgInventory, status domain.ReplenishmentStatus, orgConfirmed bool) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "fulfill_replenishment", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		if status == "" {
			status = domain.ReplenishmentFulfilled
		}
		if status != domain.ReplenishmentApproved && status != domain.ReplenishmentFulfilled {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "status", Reason: "must be APPROVED or FULFILLED"}
		}
		idx := tx.replenishmentIndex(id)
		if idx < 0 {
			return domain.ReplenishmentRequest{}, replenishmentNotFound(id)
		}
		before := tx.doc.ReplenishmentRequests[idx]
		req := &tx.doc.ReplenishmentRequests[idx]
		now := tx.now
		req.Status = status
		req.FulfilledAt = &now
		req.OrgConfirmed = orgConfirmed
		if orgConfirmed {
			req.OrgConfirmedAt = &now
			tx.setInventory(req.OrgID, tx.doc.InventoryFor(req.OrgID).Add(delivered))
		}
		tx.recordUpdate(domain.EntityReplenishment, id, before, *req)
		return *req, nil
	})
}

// StockReplenishment confirms receipt: delivered quantities are added to the
// inventory and the request becomes STOCKED whatever its prior status.
func (s *Service) StockReplenishment(ctx context.Context, id string, delivered domain.OrgInventory) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "stock_replenishment", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		return tx.stock(id, delivered)
	})
}

func (tx *Transaction) stock(id string, delivered domain.OrgInventory) (domain.ReplenishmentRequest, error) {
	idx := tx.replenishmentIndex(id)
	if idx < 0 {
		return domain.ReplenishmentRequest{}, replenishmentNotFound(id)
	}
	delivered = delivered.Sanitize()
	before := tx.doc.ReplenishmentRequests[idx]
	req := &tx.doc.ReplenishmentRequests[idx]
	now := tx.now
	req.Stocked = true
	req.StockedAt = &now
	req.StockedQuantity = delivered.Total()
	req.Status = domain.ReplenishmentStocked
	tx.setInventory(req.OrgID, tx.doc.InventoryFor(req.OrgID).Add(delivered))
	tx.recordUpdate(domain.EntityReplenishment, id, before, *req)
	return *req, nil
}

// ProposeStock previews StockReplenishment without writing.
func (s *Service) ProposeStock(ctx context.Context, id string, delivered domain.OrgInventory) (StockProposal, error) {
	return query(ctx, s, "propose_stock", func(doc domain.Document) (StockProposal, error) {
		req, ok := doc.FindReplenishment(id)
		if !ok {
			return StockProposal{}, replenishmentNotFound(id)
		}
		delivered = delivered.Sanitize()
		current := doc.InventoryFor(req.OrgID)
		return StockProposal{
			RequestID: id,
			Request:   req,
			Delivered: delivered,
			Inventory: diffInventory(req.OrgID, current, current.Add(delivered)),
		}, nil
	})
}

// CommitStock applies a proposal if the organization's inventory is unchanged
// since it was made; otherwise it fails with domain.ErrStaleWrite.
func (s *Service) CommitStock(ctx context.Context, p StockProposal) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "commit_stock", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		req, ok := tx.doc.FindReplenishment(p.RequestID)
		if !ok {
			return domain.ReplenishmentRequest{}, replenishmentNotFound(p.RequestID)
		}
		if tx.doc.InventoryFor(req.OrgID) != p.Inventory.Before {
			return req, domain.ErrStaleWrite
		}
		return tx.stock(p.RequestID, p.Delivered)
	})
}

// SetReplenishmentStatus overwrites a request's status without touching
// inventory.
func (s *Service) SetReplenishmentStatus(ctx context.Context, id string, status domain.ReplenishmentStatus) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "set_replenishment_status", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		if !status.Valid() {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
		}
		idx := tx.replenishmentIndex(id)
		if idx < 0 {
			return domain.ReplenishmentRequest{}, replenishmentNotFound(id)
		}
		before := tx.doc.ReplenishmentRequests[idx]
		if before.Status == status {
			return before, nil
		}
		tx.doc.ReplenishmentRequests[idx].Status = status
		tx.recordUpdate(domain.EntityReplenishment, id, before, tx.doc.ReplenishmentRequests[idx])
		return tx.doc.ReplenishmentRequests[idx], nil
	})
}

// SignReplenishment stores a release (provider) or receive (organization)
// signature.
func (s *Service) SignReplenishment(ctx context.Context, id, signature string, kind domain.SignatureType) (domain.ReplenishmentRequest, Result, error) {
	return mutate(ctx, s, "sign_replenishment", domain.EntityReplenishment, replenishmentID, func(tx *Transaction) (domain.ReplenishmentRequest, error) {
		if kind == "" {
			kind = domain.SignatureRelease
		}
		if kind != domain.SignatureRelease && kind != domain.SignatureReceive {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "type", Reason: "must be RELEASE or RECEIVE"}
		}
		if signature == "" {
			return domain.ReplenishmentRequest{}, domain.ValidationError{Field: "signature", Reason: "required"}
		}
		idx := tx.replenishmentIndex(id)
		if idx < 0 {
			return domain.ReplenishmentRequest{}, replenishmentNotFound(id)
		}
		before := tx.doc.ReplenishmentRequests[idx]
		req := &tx.doc.ReplenishmentRequests[idx]
		now := tx.now
		if kind == domain.SignatureRelease {
			req.Signature = signature
			req.SignedAt = &now
		} else {
			req.ReceivedSignature = signature
			req.ReceivedAt = &now
		}
		tx.recordUpdate(domain.EntityReplenishment, id, before, *req)
		return *req, nil
	})
}

// ListReplenishment returns every replenishment request in stored order.
func (s *Service) ListReplenishment(ctx context.Context) ([]domain.ReplenishmentRequest, error) {
	return query(ctx, s, "list_replenishment", func(doc domain.Document) ([]domain.ReplenishmentRequest, error) {
		return doc.ReplenishmentRequests, nil
	})
}

// GetReplenishment returns one replenishment request.
func (s *Service) GetReplenishment(ctx context.Context, id string) (domain.ReplenishmentRequest, error) {
	return query(ctx, s, "get_replenishment", func(doc domain.Document) (domain.ReplenishmentRequest, error) {
		if req, ok := doc.FindReplenishment(id); ok {
			return req, nil
		}
		return domain.ReplenishmentRequest{}, replenishmentNotFound(id)
	})
}

// OrgReplenishment returns an organization's requests, newest first.
func (s *Service) OrgReplenishment(ctx context.Context, orgID string) ([]domain.ReplenishmentRequest, error) {
	return query(ctx, s, "org_replenishment", func(doc domain.Document) ([]domain.ReplenishmentRequest, error) {
		out := []domain.ReplenishmentRequest{}
		for _, r := range doc.ReplenishmentRequests {
			if r.OrgID == orgID {
				out = append(out, r)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
		return out, nil
	})
}

// ReplenishmentAggregation summarizes demand per item across all organizations.
func (s *Service) ReplenishmentAggregation(ctx context.Context) ([]domain.ItemAggregate, error) {
	return query(ctx, s, "replenishment_aggregation", func(doc domain.Document) ([]domain.ItemAggregate, error) {
		return domain.AggregateReplenishment(doc.ReplenishmentRequests), nil
	})
}

package mirror

import (
	"context"
	"errors"
	"net/http"

	"aeracore/pkg/domain"
)

// Inventory is the wire form of an organization's stock.
type Inventory struct {
	OrgID       string `json:"orgId,omitempty"`
	Water       int    `json:"water"`
	Food        int    `json:"food"`
	Blankets    int    `json:"blankets"`
	MedicalKits int    `json:"medicalKits"`
}

// OrgInventory converts to the domain type.
func (i Inventory) OrgInventory() domain.OrgInventory {
	return domain.OrgInventory{Water: i.Water, Food: i.Food, Blankets: i.Blankets, MedicalKits: i.MedicalKits}
}

// NewRequest is the body of a replenishment request creation.
type NewRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
	Provider string `json:"provider,omitempty"`
	OrgName  string `json:"orgName,omitempty"`
}

// StatusUpdate is the body of a replenishment status change.
type StatusUpdate struct {
	Status            string `json:"status"`
	DeliveredQuantity int    `json:"deliveredQuantity,omitempty"`
}

// MemberStatusUpdate reports one member's status.
type MemberStatusUpdate struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status"`
}

// MemberStatusReport is the status summary of an organization.
type MemberStatusReport struct {
	OK      bool                `json:"ok,omitempty"`
	Counts  domain.StatusCounts `json:"counts"`
	Members []domain.OrgMember  `json:"members"`
}

// Broadcast is an organization's scoped message.
type Broadcast struct {
	OrgID   string `json:"orgId"`
	Message string `json:"message"`
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return errors.New("peer reported unhealthy")
	}
	return nil
}

// Inventory fetches an organization's stock.
func (c *Client) Inventory(ctx context.Context, orgID string) (Inventory, error) {
	var out Inventory
	err := c.do(ctx, http.MethodGet, "/orgs/"+escape(orgID)+"/inventory", nil, &out)
	return out, err
}

// SaveInventory replaces an organization's stock.
func (c *Client) SaveInventory(ctx context.Context, orgID string, inv domain.OrgInventory) error {
	body := Inventory{Water: inv.Water, Food: inv.Food, Blankets: inv.Blankets, MedicalKits: inv.MedicalKits}
	return c.do(ctx, http.MethodPost, "/orgs/"+escape(orgID)+"/inventory", body, nil)
}

// ListRequests returns an organization's replenishment requests, newest first.
func (c *Client) ListRequests(ctx context.Context, orgID string) ([]domain.ReplenishmentRequest, error) {
	var out []domain.ReplenishmentRequest
	err := c.do(ctx, http.MethodGet, "/orgs/"+escape(orgID)+"/requests", nil, &out)
	return out, err
}

// CreateRequest files a replenishment request.
func (c *Client) CreateRequest(ctx context.Context, orgID string, req NewRequest) (domain.ReplenishmentRequest, error) {
	var out domain.ReplenishmentRequest
	err := c.do(ctx, http.MethodPost, "/orgs/"+escape(orgID)+"/requests", req, &out)
	return out, err
}

// UpdateRequestStatus changes a replenishment request's status. STOCKED with
// a delivered quantity adds it to the organization's inventory.
func (c *Client) UpdateRequestStatus(ctx context.Context, id string, upd StatusUpdate) (domain.ReplenishmentRequest, error) {
	var out domain.ReplenishmentRequest
	err := c.do(ctx, http.MethodPost, "/requests/"+escape(id)+"/status", upd, &out)
	return out, err
}

// MemberStatus returns an organization's member status summary.
func (c *Client) MemberStatus(ctx context.Context, orgID string) (MemberStatusReport, error) {
	var out MemberStatusReport
	err := c.do(ctx, http.MethodGet, "/orgs/"+escape(orgID)+"/status", nil, &out)
	return out, err
}

// SetMemberStatus reports a member's status and returns the new summary.
func (c *Client) SetMemberStatus(ctx context.Context, orgID string, upd MemberStatusUpdate) (MemberStatusReport, error) {
	var out MemberStatusReport
	err := c.do(ctx, http.MethodPost, "/orgs/"+escape(orgID)+"/status", upd, &out)
	return out, err
}

// Broadcast returns an organization's broadcast.
func (c *Client) Broadcast(ctx context.Context, orgID string) (Broadcast, error) {
	var out Broadcast
	err := c.do(ctx, http.MethodGet, "/orgs/"+escape(orgID)+"/broadcast", nil, &out)
	return out, err
}

// SetBroadcast replaces an organization's broadcast.
func (c *Client) SetBroadcast(ctx context.Context, orgID, message string) (Broadcast, error) {
	var out Broadcast
	err := c.do(ctx, http.MethodPost, "/orgs/"+escape(orgID)+"/broadcast", map[string]string{"message": message}, &out)
	return out, err
}

// CreateHelpRequest files a help request on behalf of userID.
func (c *Client) CreateHelpRequest(ctx context.Context, userID string, intake domain.HelpRequestIntake) (domain.HelpRequestRecord, error) {
	var out domain.HelpRequestRecord
	err := c.do(ctx, http.MethodPost, "/users/"+escape(userID)+"/help", intake, &out)
	return out, err
}

// ActiveHelpRequest returns a user's latest help request.
func (c *Client) ActiveHelpRequest(ctx context.Context, userID string) (domain.HelpRequestRecord, error) {
	var out domain.HelpRequestRecord
	err := c.do(ctx, http.MethodGet, "/users/"+escape(userID)+"/help/active", nil, &out)
	return out, err
}

// UpdateHelpLocation moves a help request.
func (c *Client) UpdateHelpLocation(ctx context.Context, id, location string) (domain.HelpRequestRecord, error) {
	var out domain.HelpRequestRecord
	err := c.do(ctx, http.MethodPost, "/help/"+escape(id)+"/location", map[string]string{"location": location}, &out)
	return out, err
}

// PushHelpRequest implements core.Peer.
func (c *Client) PushHelpRequest(ctx context.Context, rec domain.HelpRequestRecord) error {
	_, err := c.CreateHelpRequest(ctx, rec.UserID, rec.HelpRequestIntake)
	return err
}

// PushReplenishment implements core.Peer.
func (c *Client) PushReplenishment(ctx context.Context, req domain.ReplenishmentRequest) error {
	_, err := c.CreateRequest(ctx, req.OrgID, NewRequest{
		Item:     string(req.Item),
		Quantity: req.Quantity,
		Provider: req.Provider,
		OrgName:  req.OrgName,
	})
	return err
}

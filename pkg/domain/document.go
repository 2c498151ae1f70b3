package domain

import (
	"maps"
	"slices"
)

// SchemaVersion is the current persisted document layout.
const SchemaVersion = 1

// GuestUserID identifies requests made without a session.
const GuestUserID = "guest"

// Document is the single persisted aggregate. Every mutation replaces the whole
// document.
type Document struct {
	SchemaVersion         int                     `json:"schemaVersion"`
	Revision              int64                   `json:"revision"`
	Users                 []UserProfile           `json:"users"`
	Organizations         []OrganizationProfile   `json:"organizations"`
	Inventories           map[string]OrgInventory `json:"inventories"`
	Requests              []HelpRequestRecord     `json:"requests"`
	ReplenishmentRequests []ReplenishmentRequest  `json:"replenishmentRequests"`
	CurrentUser           string                  `json:"currentUser"`
	TickerMessage         string                  `json:"tickerMessage"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() Document {
	return Document{
		SchemaVersion:         SchemaVersion,
		Users:                 []UserProfile{},
		Organizations:         []OrganizationProfile{},
		Inventories:           map[string]OrgInventory{},
		Requests:              []HelpRequestRecord{},
		ReplenishmentRequests: []ReplenishmentRequest{},
	}
}

// Normalize fills nil collections, recomputes derived user fields and clamps
// inventories. It is applied on load and before every save.
func (d *Document) Normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
	if d.Users == nil {
		d.Users = []UserProfile{}
	}
	if d.Organizations == nil {
		d.Organizations = []OrganizationProfile{}
	}
	if d.Inventories == nil {
		d.Inventories = map[string]OrgInventory{}
	}
	if d.Requests == nil {
		d.Requests = []HelpRequestRecord{}
	}
	if d.ReplenishmentRequests == nil {
		d.ReplenishmentRequests = []ReplenishmentRequest{}
	}
	for i := range d.Users {
		if d.Users[i].Household == nil {
			d.Users[i].Household = []HouseholdMember{}
		}
		d.Users[i].HouseholdMembers = len(d.Users[i].Household) + 1
	}
	for id, inv := range d.Inventories {
		d.Inventories[id] = inv.Sanitize()
	}
}

// Clone returns a deep copy so transactions can mutate freely.
func (d Document) Clone() Document {
	out := d
	out.Users = make([]UserProfile, len(d.Users))
	for i, u := range d.Users {
		u.Household = slices.Clone(u.Household)
		if u.PendingStatusRequest != nil {
			req := *u.PendingStatusRequest
			u.PendingStatusRequest = &req
		}
		out.Users[i] = u
	}
	out.Organizations = make([]OrganizationProfile, len(d.Organizations))
	for i, o := range d.Organizations {
		o.LastBroadcastTime = clonePtr(o.LastBroadcastTime)
		out.Organizations[i] = o
	}
	out.Inventories = maps.Clone(d.Inventories)
	if out.Inventories == nil {
		out.Inventories = map[string]OrgInventory{}
	}
	out.Requests = make([]HelpRequestRecord, len(d.Requests))
	for i, r := range d.Requests {
		r.VulnerableGroups = slices.Clone(r.VulnerableGroups)
		r.IsSafe = clonePtr(r.IsSafe)
		r.IsInjured = clonePtr(r.IsInjured)
		r.CanEvacuate = clonePtr(r.CanEvacuate)
		r.HazardsPresent = clonePtr(r.HazardsPresent)
		r.PetsPresent = clonePtr(r.PetsPresent)
		r.HasWater = clonePtr(r.HasWater)
		r.HasFood = clonePtr(r.HasFood)
		r.HasMeds = clonePtr(r.HasMeds)
		r.HasPower = clonePtr(r.HasPower)
		r.HasPhone = clonePtr(r.HasPhone)
		r.NeedsTransport = clonePtr(r.NeedsTransport)
		out.Requests[i] = r
	}
	out.ReplenishmentRequests = make([]ReplenishmentRequest, len(d.ReplenishmentRequests))
	for i, r := range d.ReplenishmentRequests {
		r.FulfilledAt = clonePtr(r.FulfilledAt)
		r.OrgConfirmedAt = clonePtr(r.OrgConfirmedAt)
		r.StockedAt = clonePtr(r.StockedAt)
		r.SignedAt = clonePtr(r.SignedAt)
		r.ReceivedAt = clonePtr(r.ReceivedAt)
		out.ReplenishmentRequests[i] = r
	}
	return out
}

// FindUser returns the user with id.
func (d Document) FindUser(id string) (UserProfile, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return UserProfile{}, false
}

// FindOrganization returns the organization with id.
func (d Document) FindOrganization(id string) (OrganizationProfile, bool) {
	for _, o := range d.Organizations {
		if o.ID == id {
			return o, true
		}
	}
	return OrganizationProfile{}, false
}

// FindReplenishment returns the replenishment request with id.
func (d Document) FindReplenishment(id string) (ReplenishmentRequest, bool) {
	for _, r := range d.ReplenishmentRequests {
		if r.ID == id {
			return r, true
		}
	}
	return ReplenishmentRequest{}, false
}

// InventoryFor returns the organization's inventory, zero when absent.
func (d Document) InventoryFor(orgID string) OrgInventory {
	return d.Inventories[orgID]
}

func clonePtr[T any](t *T) *T {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

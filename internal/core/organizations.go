package core

import (
	"context"
	"fmt"

	"aeracore/pkg/domain"
)

const maxOrgIDAttempts = 50

// OrganizationIDPrefix returns the id prefix for an organization type.
func OrganizationIDPrefix(t domain.OrganizationType) string {
	switch t {
	case domain.OrgTypeChurch:
		return "CH"
	case domain.OrgTypeNGO:
		return "NGO"
	default:
		return "ORG"
	}
}

func organizationID(o domain.OrganizationProfile) string { return o.ID }

// GenerateOrganizationID returns an unused id of the form PREFIX-NNNN.
func (s *Service) GenerateOrganizationID(ctx context.Context, t domain.OrganizationType) (string, error) {
	return query(ctx, s, "generate_organization_id", func(doc domain.Document) (string, error) {
		return s.nextOrganizationID(doc, t)
	})
}

func (s *Service) nextOrganizationID(doc domain.Document, t domain.OrganizationType) (string, error) {
	prefix := OrganizationIDPrefix(t)
	for range maxOrgIDAttempts {
		id := fmt.Sprintf("%s-%04d", prefix, 1000+s.randIntn(9000))
		if _, taken := doc.FindOrganization(id); !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free %s organization id after %d attempts", prefix, maxOrgIDAttempts)
}

// GetOrganization returns the organization with id.
func (s *Service) GetOrganization(ctx context.Context, id string) (domain.OrganizationProfile, error) {
	return query(ctx, s, "get_organization", func(doc domain.Document) (domain.OrganizationProfile, error) {
		if o, ok := doc.FindOrganization(id); ok {
			return o, nil
		}
		return domain.OrganizationProfile{}, domain.NotFoundError{Entity: domain.EntityOrganization, ID: id}
	})
}

// ListOrganizations returns every organization.
func (s *Service) ListOrganizations(ctx context.Context) ([]domain.OrganizationProfile, error) {
	return query(ctx, s, "list_organizations", func(doc domain.Document) ([]domain.OrganizationProfile, error) {
		return doc.Organizations, nil
	})
}

// UpsertOrganization creates or replaces an organization. Creating one
// allocates an id when empty, starts it active, gives it a zero inventory and
// makes the signed-in user its INSTITUTION_ADMIN. Updates keep the stored
// active flag and broadcast, which have their own operations.
func (s *Service) UpsertOrganization(ctx context.Context, org domain.OrganizationProfile) (domain.OrganizationProfile, Result, error) {
	return mutate(ctx, s, "upsert_organization", domain.EntityOrganization, organizationID, func(tx *Transaction) (domain.OrganizationProfile, error) {
		if org.Name == "" {
			return domain.OrganizationProfile{}, domain.ValidationError{Field: "name", Reason: "required"}
		}
		if idx := tx.organizationIndex(org.ID); org.ID != "" && idx >= 0 {
			before := tx.doc.Organizations[idx]
			org.Active = before.Active
			org.CurrentBroadcast = before.CurrentBroadcast
			org.LastBroadcastTime = before.LastBroadcastTime
			tx.doc.Organizations[idx] = org
			tx.recordUpdate(domain.EntityOrganization, org.ID, before, org)
			return org, nil
		}
		if org.ID == "" {
			id, err := tx.svc.nextOrganizationID(tx.doc, org.Type)
			if err != nil {
				return domain.OrganizationProfile{}, err
			}
			org.ID = id
		}
		org.Active = true
		tx.doc.Organizations = append(tx.doc.Organizations, org)
		tx.recordCreate(domain.EntityOrganization, org.ID, org)
		if _, ok := tx.doc.Inventories[org.ID]; !ok {
			tx.setInventory(org.ID, domain.OrgInventory{})
		}
		if idx := tx.userIndex(tx.doc.CurrentUser); idx >= 0 {
			before := tx.doc.Users[idx]
			tx.doc.Users[idx].Role = domain.RoleInstitutionAdmin
			tx.doc.Users[idx].CommunityID = org.ID
			tx.recordUpdate(domain.EntityUser, before.ID, before, tx.doc.Users[idx])
		}
		return org, nil
	})
}

// SetOrganizationActive activates or deactivates an organization.
func (s *Service) SetOrganizationActive(ctx context.Context, id string, active bool) (domain.OrganizationProfile, Result, error) {
	return mutate(ctx, s, "set_organization_active", domain.EntityOrganization, organizationID, func(tx *Transaction) (domain.OrganizationProfile, error) {
		idx := tx.organizationIndex(id)
		if idx < 0 {
			return domain.OrganizationProfile{}, domain.NotFoundError{Entity: domain.EntityOrganization, ID: id}
		}
		before := tx.doc.Organizations[idx]
		tx.doc.Organizations[idx].Active = active
		tx.recordUpdate(domain.EntityOrganization, id, before, tx.doc.Organizations[idx])
		return tx.doc.Organizations[idx], nil
	})
}

package core

import (
	"context"
	"unicode/utf8"

	"aeracore/pkg/domain"
)

// DefaultTicker is shown when neither a system alert nor an org broadcast applies.
const DefaultTicker = "Evacuation Order in Zone 4 • Shelter capacity at 85% • High water levels reported on Main St. •"

// minSystemAlertLength is the length a system message must exceed to be shown.
const minSystemAlertLength = 5

// ResolveTicker picks the message profile sees: the system alert, then the
// broadcast of the profile's organization, then DefaultTicker.
func ResolveTicker(doc domain.Document, profile domain.UserProfile) string {
	if utf8.RuneCountInString(doc.TickerMessage) > minSystemAlertLength {
		return "[SYSTEM ALERT] " + doc.TickerMessage
	}
	if profile.CommunityID != "" {
		if org, ok := doc.FindOrganization(profile.CommunityID); ok && org.CurrentBroadcast != "" {
			return "[" + org.Name + " Update] " + org.CurrentBroadcast
		}
	}
	return DefaultTicker
}

// Ticker resolves the ticker for profile against the stored document.
func (s *Service) Ticker(ctx context.Context, profile domain.UserProfile) (string, error) {
	return query(ctx, s, "ticker", func(doc domain.Document) (string, error) {
		return ResolveTicker(doc, profile), nil
	})
}

// CurrentTicker resolves the ticker for the session user, or the guest.
func (s *Service) CurrentTicker(ctx context.Context) (string, error) {
	return query(ctx, s, "current_ticker", func(doc domain.Document) (string, error) {
		profile := GuestProfile()
		if u, ok := doc.FindUser(doc.CurrentUser); ok {
			profile = u
		}
		return ResolveTicker(doc, profile), nil
	})
}

// SetOrgBroadcast publishes message to an organization's members. The message
// must carry an approved moderation verdict.
func (s *Service) SetOrgBroadcast(ctx context.Context, orgID, message string, verdict Verdict) (domain.OrganizationProfile, Result, error) {
	return mutate(ctx, s, "set_org_broadcast", domain.EntityOrganization, organizationID, func(tx *Transaction) (domain.OrganizationProfile, error) {
		if !verdict.Approved {
			reason := verdict.Reason
			if reason == "" {
				reason = "rejected by moderation"
			}
			return domain.OrganizationProfile{}, domain.ValidationError{Field: "message", Reason: reason}
		}
		if message == "" {
			return domain.OrganizationProfile{}, domain.ValidationError{Field: "message", Reason: "required"}
		}
		return tx.setBroadcast(orgID, message)
	})
}

// ClearOrgBroadcast removes an organization's broadcast.
func (s *Service) ClearOrgBroadcast(ctx context.Context, orgID string) (domain.OrganizationProfile, Result, error) {
	return mutate(ctx, s, "clear_org_broadcast", domain.EntityOrganization, organizationID, func(tx *Transaction) (domain.OrganizationProfile, error) {
		return tx.setBroadcast(orgID, "")
	})
}

func (tx *Transaction) setBroadcast(orgID, message string) (domain.OrganizationProfile, error) {
	idx := tx.organizationIndex(orgID)
	if idx < 0 {
		return domain.OrganizationProfile{}, domain.NotFoundError{Entity: domain.EntityOrganization, ID: orgID}
	}
	before := tx.doc.Organizations[idx]
	org := &tx.doc.Organizations[idx]
	org.CurrentBroadcast = message
	now := tx.now
	org.LastBroadcastTime = &now
	tx.recordUpdate(domain.EntityOrganization, orgID, before, *org)
	return *org, nil
}

// OrgBroadcast returns an organization's current broadcast, empty when none.
func (s *Service) OrgBroadcast(ctx context.Context, orgID string) (string, error) {
	return query(ctx, s, "org_broadcast", func(doc domain.Document) (string, error) {
		org, ok := doc.FindOrganization(orgID)
		if !ok {
			return "", domain.NotFoundError{Entity: domain.EntityOrganization, ID: orgID}
		}
		return org.CurrentBroadcast, nil
	})
}

// SetSystemTicker sets the store-wide alert. An empty message clears it.
func (s *Service) SetSystemTicker(ctx context.Context, message string) (Result, error) {
	_, res, err := mutate(ctx, s, "set_system_ticker", domain.EntityTicker, nil, func(tx *Transaction) (string, error) {
		before := tx.doc.TickerMessage
		tx.doc.TickerMessage = message
		tx.recordUpdate(domain.EntityTicker, "system", before, message)
		return message, nil
	})
	return res, err
}

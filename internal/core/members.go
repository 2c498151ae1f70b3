package core

import (
	"context"

	"aeracore/pkg/domain"
)

// MemberStatusReport is the status summary of an organization's members.
type MemberStatusReport struct {
	Counts  domain.StatusCounts `json:"counts"`
	Members []domain.OrgMember  `json:"members"`
}

// OrgMembers joins every user linked to orgID with their latest help request.
func (s *Service) OrgMembers(ctx context.Context, orgID string) ([]domain.OrgMember, error) {
	return query(ctx, s, "org_members", func(doc domain.Document) ([]domain.OrgMember, error) {
		return orgMembers(doc, orgID), nil
	})
}

// MemberStatus returns the members of orgID and their aggregated status counts.
func (s *Service) MemberStatus(ctx context.Context, orgID string) (MemberStatusReport, error) {
	return query(ctx, s, "member_status", func(doc domain.Document) (MemberStatusReport, error) {
		members := orgMembers(doc, orgID)
		statuses := make([]domain.MemberStatus, 0, len(members))
		for _, m := range members {
			statuses = append(statuses, m.Status)
		}
		return MemberStatusReport{Counts: domain.AggregateMemberStatus(statuses), Members: members}, nil
	})
}

func orgMembers(doc domain.Document, orgID string) []domain.OrgMember {
	out := []domain.OrgMember{}
	for _, u := range doc.Users {
		if u.CommunityID != orgID {
			continue
		}
		member := domain.OrgMember{
			ID:                       u.ID,
			Name:                     u.FullName,
			Status:                   domain.MemberUnknown,
			LastUpdate:               "Never",
			Location:                 "Unknown",
			Needs:                    []string{},
			Phone:                    u.Phone,
			Address:                  u.Address,
			EmergencyContactName:     u.EmergencyContactName,
			EmergencyContactPhone:    u.EmergencyContactPhone,
			EmergencyContactRelation: u.EmergencyContactRelation,
		}
		if latest, ok := latestHelpRequest(doc.Requests, u.ID); ok {
			member.Status = domain.MemberStatusFromRecord(&latest)
			member.Needs = domain.MemberNeeds(&latest)
			member.LastUpdate = latest.Timestamp.Format("15:04")
			if latest.Location != "" {
				member.Location = latest.Location
			}
		}
		out = append(out, member)
	}
	return out
}

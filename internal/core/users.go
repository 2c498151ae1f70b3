package core

import (
	"context"
	"strings"

	"aeracore/pkg/domain"
)

// GuestProfile is returned when no user is signed in.
func GuestProfile() domain.UserProfile {
	return domain.UserProfile{
		ID:               domain.GuestUserID,
		HouseholdMembers: 1,
		Household:        []domain.HouseholdMember{},
		Role:             domain.RoleGeneralUser,
		Language:         domain.LanguageEnglish,
		Active:           true,
		Notifications:    domain.NotificationSettings{Push: true, SMS: true, Email: true},
	}
}

func userID(u domain.UserProfile) string { return u.ID }

// HasSession reports whether a user is signed in.
func (s *Service) HasSession(ctx context.Context) (bool, error) {
	return query(ctx, s, "has_session", func(doc domain.Document) (bool, error) {
		return doc.CurrentUser != "", nil
	})
}

// CurrentProfile returns the signed-in user, or the guest profile when there is
// no session or the session user no longer exists.
func (s *Service) CurrentProfile(ctx context.Context) (domain.UserProfile, error) {
	return query(ctx, s, "current_profile", func(doc domain.Document) (domain.UserProfile, error) {
		if doc.CurrentUser == "" {
			return GuestProfile(), nil
		}
		if u, ok := doc.FindUser(doc.CurrentUser); ok {
			return u, nil
		}
		return GuestProfile(), nil
	})
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id string) (domain.UserProfile, error) {
	return query(ctx, s, "get_user", func(doc domain.Document) (domain.UserProfile, error) {
		if u, ok := doc.FindUser(id); ok {
			return u, nil
		}
		return domain.UserProfile{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	})
}

// ListUsers returns every registered user.
func (s *Service) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	return query(ctx, s, "list_users", func(doc domain.Document) ([]domain.UserProfile, error) {
		return doc.Users, nil
	})
}

// UpsertProfile creates or replaces a user profile and signs that user in. An
// empty or guest id allocates a new one. New profiles start active; updates
// keep the stored active flag, which only SetUserActive changes.
func (s *Service) UpsertProfile(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, Result, error) {
	return mutate(ctx, s, "upsert_profile", domain.EntityUser, userID, func(tx *Transaction) (domain.UserProfile, error) {
		return tx.upsertProfile(profile)
	})
}

func (tx *Transaction) upsertProfile(profile domain.UserProfile) (domain.UserProfile, error) {
	if profile.ID == "" || profile.ID == domain.GuestUserID {
		profile.ID = tx.svc.newID()
	}
	if profile.Household == nil {
		profile.Household = []domain.HouseholdMember{}
	}
	profile.HouseholdMembers = len(profile.Household) + 1
	if profile.Role == "" {
		profile.Role = domain.RoleGeneralUser
	}
	if profile.Language == "" {
		profile.Language = domain.LanguageEnglish
	}

	if idx := tx.userIndex(profile.ID); idx >= 0 {
		before := tx.doc.Users[idx]
		profile.Active = before.Active
		tx.doc.Users[idx] = profile
		tx.recordUpdate(domain.EntityUser, profile.ID, before, profile)
	} else {
		profile.Active = true
		tx.doc.Users = append(tx.doc.Users, profile)
		tx.recordCreate(domain.EntityUser, profile.ID, profile)
	}
	tx.setSession(profile.ID)
	return profile, nil
}

// Login signs in the user whose phone number or email matches identifier.
func (s *Service) Login(ctx context.Context, identifier string) (domain.UserProfile, Result, error) {
	return mutate(ctx, s, "login", domain.EntitySession, userID, func(tx *Transaction) (domain.UserProfile, error) {
		id := strings.TrimSpace(identifier)
		if id == "" {
			return domain.UserProfile{}, domain.ValidationError{Field: "identifier", Reason: "phone or email required"}
		}
		for _, u := range tx.doc.Users {
			if u.Phone == id || (u.Email != "" && strings.EqualFold(u.Email, id)) {
				if !u.Active {
					return domain.UserProfile{}, domain.ErrAccountDeactivated
				}
				tx.setSession(u.ID)
				return u, nil
			}
		}
		return domain.UserProfile{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	})
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context) (Result, error) {
	_, res, err := mutate(ctx, s, "logout", domain.EntitySession, nil, func(tx *Transaction) (struct{}, error) {
		tx.setSession("")
		return struct{}{}, nil
	})
	return res, err
}

// SetUserActive activates or deactivates a user. The signed-in user cannot be
// deactivated.
func (s *Service) SetUserActive(ctx context.Context, id string, active bool) (domain.UserProfile, Result, error) {
	return mutate(ctx, s, "set_user_active", domain.EntityUser, userID, func(tx *Transaction) (domain.UserProfile, error) {
		idx := tx.userIndex(id)
		if idx < 0 {
			return domain.UserProfile{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
		}
		if !active && tx.doc.CurrentUser == id {
			return domain.UserProfile{}, domain.ErrSelfDeactivationBlocked
		}
		before := tx.doc.Users[idx]
		if before.Active == active {
			return before, nil
		}
		tx.doc.Users[idx].Active = active
		tx.recordUpdate(domain.EntityUser, id, before, tx.doc.Users[idx])
		return tx.doc.Users[idx], nil
	})
}

func (tx *Transaction) setSession(id string) {
	if tx.doc.CurrentUser == id {
		return
	}
	before := tx.doc.CurrentUser
	tx.doc.CurrentUser = id
	tx.recordUpdate(domain.EntitySession, "current", before, id)
}

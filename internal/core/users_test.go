package core_test

import (
	"context"
	"errors"
	"testing"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

func TestCurrentProfileFallsBackToGuest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	has, err := h.svc.HasSession(ctx)
	if err != nil || has {
		t.Fatalf("expected no session on a fresh store, got %v, %v", has, err)
	}
	profile, err := h.svc.CurrentProfile(ctx)
	if err != nil {
		t.Fatalf("current profile: %v", err)
	}
	if profile.ID != domain.GuestUserID || profile.Role != domain.RoleGeneralUser || profile.Language != domain.LanguageEnglish {
		t.Fatalf("unexpected guest profile %+v", profile)
	}
	if !profile.Active || !profile.Notifications.Push || !profile.Notifications.SMS || !profile.Notifications.Email {
		t.Fatalf("guest must be active with every notification enabled: %+v", profile)
	}
}

func TestUpsertProfileAssignsIDAndSignsIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, _, err := h.svc.UpsertProfile(ctx, domain.UserProfile{
		ID:       domain.GuestUserID,
		FullName: "Nora Vance",
		Phone:    "555-4242",
		Household: []domain.HouseholdMember{
			{ID: "h1", Name: "Eli"},
			{ID: "h2", Name: "Ada"},
		},
		HouseholdMembers: 99,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created.ID != "id-1" {
		t.Fatalf("expected generated id, got %q", created.ID)
	}
	if created.HouseholdMembers != 3 {
		t.Fatalf("household count must be recomputed, got %d", created.HouseholdMembers)
	}
	if !created.Active || created.Role != domain.RoleGeneralUser || created.Language != domain.LanguageEnglish {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	current, err := h.svc.CurrentProfile(ctx)
	if err != nil || current.ID != created.ID {
		t.Fatalf("expected session for %s, got %+v (%v)", created.ID, current, err)
	}
}

func TestUpsertProfileKeepsStoredActiveFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.svc.SetUserActive(ctx, "u2", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	updated, _, err := h.svc.UpsertProfile(ctx, domain.UserProfile{ID: "u2", FullName: "David B.", Phone: "555-1002", Active: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if updated.Active {
		t.Fatalf("profile edits must not reactivate a user")
	}
	stored, err := h.svc.GetUser(ctx, "u2")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.FullName != "David B." || stored.Active {
		t.Fatalf("unexpected stored user %+v", stored)
	}
}

func TestLoginMatchesPhoneOrEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u := mustLogin(t, h, " 555-1001 ")
	if u.ID != "u1" {
		t.Fatalf("expected u1, got %s", u.ID)
	}
	if _, _, err := h.svc.UpsertProfile(ctx, domain.UserProfile{FullName: "Mail User", Phone: "555-7777", Email: "Mail.User@Example.org"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := h.svc.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if has, _ := h.svc.HasSession(ctx); has {
		t.Fatalf("expected logout to clear the session")
	}
	u = mustLogin(t, h, "mail.user@example.org")
	if u.FullName != "Mail User" {
		t.Fatalf("expected email match, got %+v", u)
	}
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.svc.Login(ctx, "nobody@example.org"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := h.svc.Login(ctx, "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := h.svc.SetUserActive(ctx, "u2", false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := h.svc.Login(ctx, "555-1002"); !errors.Is(err, domain.ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}
	if has, _ := h.svc.HasSession(ctx); has {
		t.Fatalf("failed login must not create a session")
	}
}

func TestSetUserActiveGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mustLogin(t, h, "555-0000")
	if _, _, err := h.svc.SetUserActive(ctx, "u0", false); !errors.Is(err, domain.ErrSelfDeactivationBlocked) {
		t.Fatalf("expected ErrSelfDeactivationBlocked, got %v", err)
	}
	if _, _, err := h.svc.SetUserActive(ctx, "missing", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	u, _, err := h.svc.SetUserActive(ctx, "u4", false)
	if err != nil || u.Active {
		t.Fatalf("expected u4 deactivated, got %+v (%v)", u, err)
	}
	u, _, err = h.svc.SetUserActive(ctx, "u4", true)
	if err != nil || !u.Active {
		t.Fatalf("expected u4 reactivated, got %+v (%v)", u, err)
	}
}

func TestListUsersReturnsSeed(t *testing.T) {
	svc := core.NewInMemoryService()
	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 5 {
		t.Fatalf("expected 5 seeded users, got %d", len(users))
	}
	if _, err := svc.GetUser(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"aeracore/pkg/domain"
)

// LocationFix is the most recent location reported in a help request.
type LocationFix struct {
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

func helpRequestID(r domain.HelpRequestRecord) string { return r.ID }

var errSessionRequired = domain.ValidationError{Field: "session", Reason: "sign in required"}

// SubmitHelpRequest records an intake for the signed-in user (or guest). The
// record is RECEIVED, carries its computed triage priority and is marked
// synced only when the service is online. Any pending status check for the
// user is cleared.
func (s *Service) SubmitHelpRequest(ctx context.Context, intake domain.HelpRequestIntake) (domain.HelpRequestRecord, Result, error) {
	return mutate(ctx, s, "submit_help_request", domain.EntityHelpRequest, helpRequestID, func(tx *Transaction) (domain.HelpRequestRecord, error) {
		owner := tx.doc.CurrentUser
		if owner == "" {
			owner = domain.GuestUserID
		}
		return tx.addHelpRequest(owner, intake, domain.TriagePriority(intake), ""), nil
	})
}

// SubmitHelpRequestFor records an intake on behalf of userID, as pushed by a
// peer. An empty userID files it as the guest.
func (s *Service) SubmitHelpRequestFor(ctx context.Context, userID string, intake domain.HelpRequestIntake) (domain.HelpRequestRecord, Result, error) {
	return mutate(ctx, s, "submit_help_request", domain.EntityHelpRequest, helpRequestID, func(tx *Transaction) (domain.HelpRequestRecord, error) {
		owner := strings.TrimSpace(userID)
		if owner == "" {
			owner = domain.GuestUserID
		}
		return tx.addHelpRequest(owner, intake, domain.TriagePriority(intake), ""), nil
	})
}

func (tx *Transaction) addHelpRequest(owner string, intake domain.HelpRequestIntake, priority domain.Priority, checkIn domain.MemberStatus) domain.HelpRequestRecord {
	if intake.VulnerableGroups == nil {
		intake.VulnerableGroups = []string{}
	}
	rec := domain.HelpRequestRecord{
		HelpRequestIntake: intake,
		ID:                tx.svc.newID(),
		UserID:            owner,
		Timestamp:         tx.now,
		Status:            domain.HelpStatusReceived,
		Priority:          priority,
		Synced:            tx.svc.Online(),
		CheckIn:           checkIn,
	}
	tx.doc.Requests = append([]domain.HelpRequestRecord{rec}, tx.doc.Requests...)
	tx.recordCreate(domain.EntityHelpRequest, rec.ID, rec)
	tx.clearPendingStatus(owner)
	return rec
}

func (tx *Transaction) clearPendingStatus(userID string) {
	idx := tx.userIndex(userID)
	if idx < 0 || tx.doc.Users[idx].PendingStatusRequest == nil {
		return
	}
	before := tx.doc.Users[idx]
	tx.doc.Users[idx].PendingStatusRequest = nil
	tx.recordUpdate(domain.EntityUser, userID, before, tx.doc.Users[idx])
}

// UpdateHelpRequest changes the location and/or status of a help request.
func (s *Service) UpdateHelpRequest(ctx context.Context, id string, update domain.HelpRequestUpdate) (domain.HelpRequestRecord, Result, error) {
	return mutate(ctx, s, "update_help_request", domain.EntityHelpRequest, helpRequestID, func(tx *Transaction) (domain.HelpRequestRecord, error) {
		idx := tx.helpRequestIndex(id)
		if idx < 0 {
			return domain.HelpRequestRecord{}, domain.NotFoundError{Entity: domain.EntityHelpRequest, ID: id}
		}
		if update.Status != nil && !update.Status.Valid() {
			return domain.HelpRequestRecord{}, domain.ValidationError{Field: "status", Reason: "unknown help request status " + string(*update.Status)}
		}
		before := tx.doc.Requests[idx]
		rec := &tx.doc.Requests[idx]
		if update.Location != nil {
			rec.Location = *update.Location
		}
		if update.Status != nil {
			rec.Status = *update.Status
		}
		if rec.Location == before.Location && rec.Status == before.Status {
			return *rec, nil
		}
		tx.recordUpdate(domain.EntityHelpRequest, id, before, *rec)
		return *rec, nil
	})
}

// ListHelpRequests returns every help request, newest first.
func (s *Service) ListHelpRequests(ctx context.Context) ([]domain.HelpRequestRecord, error) {
	return query(ctx, s, "list_help_requests", func(doc domain.Document) ([]domain.HelpRequestRecord, error) {
		return sortedHelpRequests(doc.Requests, ""), nil
	})
}

// ActiveHelpRequest returns the signed-in user's latest help request.
func (s *Service) ActiveHelpRequest(ctx context.Context) (domain.HelpRequestRecord, bool, error) {
	type active struct {
		rec domain.HelpRequestRecord
		ok  bool
	}
	out, err := query(ctx, s, "active_help_request", func(doc domain.Document) (active, error) {
		if doc.CurrentUser == "" {
			return active{}, nil
		}
		rec, ok := latestHelpRequest(doc.Requests, doc.CurrentUser)
		return active{rec: rec, ok: ok}, nil
	})
	return out.rec, out.ok, err
}

// UserHelpRequest returns a given user's latest help request.
func (s *Service) UserHelpRequest(ctx context.Context, userID string) (domain.HelpRequestRecord, bool, error) {
	type latest struct {
		rec domain.HelpRequestRecord
		ok  bool
	}
	out, err := query(ctx, s, "user_help_request", func(doc domain.Document) (latest, error) {
		rec, ok := latestHelpRequest(doc.Requests, userID)
		return latest{rec: rec, ok: ok}, nil
	})
	return out.rec, out.ok, err
}

// LastKnownLocation returns the location of the latest help request of the
// signed-in user, or of anyone when no user is signed in.
func (s *Service) LastKnownLocation(ctx context.Context) (LocationFix, bool, error) {
	type fix struct {
		loc LocationFix
		ok  bool
	}
	out, err := query(ctx, s, "last_known_location", func(doc domain.Document) (fix, error) {
		reqs := sortedHelpRequests(doc.Requests, doc.CurrentUser)
		if len(reqs) == 0 || reqs[0].Location == "" {
			return fix{}, nil
		}
		return fix{loc: LocationFix{Location: reqs[0].Location, Timestamp: reqs[0].Timestamp}, ok: true}, nil
	})
	return out.loc, out.ok, err
}

// SendPing asks a user to report their status on behalf of the signed-in user.
func (s *Service) SendPing(ctx context.Context, targetUserID string) (domain.UserProfile, Result, error) {
	return mutate(ctx, s, "send_ping", domain.EntityUser, userID, func(tx *Transaction) (domain.UserProfile, error) {
		requester, ok := tx.doc.FindUser(tx.doc.CurrentUser)
		if !ok {
			return domain.UserProfile{}, errSessionRequired
		}
		idx := tx.userIndex(targetUserID)
		if idx < 0 {
			return domain.UserProfile{}, domain.NotFoundError{Entity: domain.EntityUser, ID: targetUserID}
		}
		before := tx.doc.Users[idx]
		tx.doc.Users[idx].PendingStatusRequest = &domain.StatusRequest{
			RequesterName: requester.FullName,
			Timestamp:     tx.now,
		}
		tx.recordUpdate(domain.EntityUser, targetUserID, before, tx.doc.Users[idx])
		return tx.doc.Users[idx], nil
	})
}

// RespondToPing answers a status check for the signed-in user by recording a
// check-in help request.
func (s *Service) RespondToPing(ctx context.Context, isSafe bool) (domain.HelpRequestRecord, Result, error) {
	return mutate(ctx, s, "respond_to_ping", domain.EntityHelpRequest, helpRequestID, func(tx *Transaction) (domain.HelpRequestRecord, error) {
		if tx.doc.CurrentUser == "" {
			return domain.HelpRequestRecord{}, errSessionRequired
		}
		return tx.addCheckIn(tx.doc.CurrentUser, domain.Bool(isSafe), ""), nil
	})
}

// RecordMemberStatus stores a status reported for an organization member by
// someone else, such as an institution admin or a remote peer. UNKNOWN records
// an unanswered check-in.
func (s *Service) RecordMemberStatus(ctx context.Context, orgID, memberID string, status domain.MemberStatus) (domain.HelpRequestRecord, Result, error) {
	return mutate(ctx, s, "record_member_status", domain.EntityHelpRequest, helpRequestID, func(tx *Transaction) (domain.HelpRequestRecord, error) {
		status = domain.MemberStatus(strings.ToUpper(strings.TrimSpace(string(status))))
		var isSafe *bool
		switch status {
		case domain.MemberSafe:
			isSafe = domain.Bool(true)
		case domain.MemberDanger:
			isSafe = domain.Bool(false)
		case domain.MemberUnknown:
		default:
			return domain.HelpRequestRecord{}, domain.ValidationError{Field: "status", Reason: "must be SAFE, DANGER or UNKNOWN"}
		}
		member, ok := tx.doc.FindUser(memberID)
		if !ok || member.CommunityID != orgID {
			return domain.HelpRequestRecord{}, domain.NotFoundError{Entity: domain.EntityUser, ID: memberID}
		}
		return tx.addCheckIn(memberID, isSafe, status), nil
	})
}

func (tx *Transaction) addCheckIn(owner string, isSafe *bool, status domain.MemberStatus) domain.HelpRequestRecord {
	emergency := "General Emergency"
	priority := domain.PriorityHigh
	if isSafe == nil || *isSafe {
		emergency = "Check-in"
		priority = domain.PriorityLow
	}
	intake := domain.HelpRequestIntake{
		IsSafe:               isSafe,
		Location:             "Status Check Response",
		EmergencyType:        emergency,
		IsInjured:            domain.Bool(false),
		SituationDescription: "Response to Institution Status Check",
		PeopleCount:          1,
		HasPhone:             domain.Bool(true),
		VulnerableGroups:     []string{},
		ConsentToShare:       true,
	}
	return tx.addHelpRequest(owner, intake, priority, status)
}

// sortedHelpRequests filters by owner (all when empty) and orders newest first.
func sortedHelpRequests(reqs []domain.HelpRequestRecord, owner string) []domain.HelpRequestRecord {
	out := make([]domain.HelpRequestRecord, 0, len(reqs))
	for _, r := range reqs {
		if owner == "" || r.UserID == owner {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func latestHelpRequest(reqs []domain.HelpRequestRecord, owner string) (domain.HelpRequestRecord, bool) {
	if owner == "" {
		return domain.HelpRequestRecord{}, false
	}
	sorted := sortedHelpRequests(reqs, owner)
	if len(sorted) == 0 {
		return domain.HelpRequestRecord{}, false
	}
	return sorted[0], true
}

package httpapi

import (
	"net/http"
	"strings"

	"aeracore/internal/core"
	"aeracore/pkg/domain"
)

type inventoryResponse struct {
	OrgID string `json:"orgId"`
	domain.OrgInventory
}

type createRequestBody struct {
	Item     string `json:"item"`
	Quantity any    `json:"quantity"`
	Provider string `json:"provider"`
	OrgName  string `json:"orgName"`
}

type statusBody struct {
	Status            string `json:"status"`
	DeliveredQuantity any    `json:"deliveredQuantity"`
}

type memberStatusBody struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

type memberStatusResponse struct {
	OK bool `json:"ok,omitempty"`
	core.MemberStatusReport
}

type broadcastResponse struct {
	OrgID   string `json:"orgId"`
	Message string `json:"message"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "online": h.svc.Online()})
}

func (h *Handler) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	orgID := pathVar(r, "orgId")
	inv, err := h.svc.Inventory(r.Context(), orgID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResponse{OrgID: orgID, OrgInventory: inv})
}

func (h *Handler) handleSaveInventory(w http.ResponseWriter, r *http.Request) {
	var in domain.InventoryInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, _, err := h.svc.SetInventory(r.Context(), pathVar(r, "orgId"), in.Inventory()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.OrgReplenishment(r.Context(), pathVar(r, "orgId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// requestItem accepts a canonical item name or any name that resolves to an
// inventory category by substring.
func requestItem(name string) domain.RequestItem {
	item := domain.RequestItem(strings.TrimSpace(name))
	if item.Valid() {
		return item
	}
	if c, ok := domain.CategoryFromItemName(name); ok {
		return domain.ItemForCategory(c)
	}
	return item
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := domain.CoerceCount(body.Quantity)
	if strings.TrimSpace(body.Item) == "" || quantity == 0 {
		writeError(w, http.StatusBadRequest, "item and quantity required")
		return
	}
	req, _, err := h.svc.SubmitReplenishment(r.Context(), pathVar(r, "orgId"), requestItem(body.Item), quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// handleRequestStatus sets a replenishment status. STOCKED with a delivered
// quantity adds that quantity to the counter matching the request's item.
func (h *Handler) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := domain.ReplenishmentStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
	if status == "" {
		writeError(w, http.StatusBadRequest, "status required")
		return
	}
	ctx := r.Context()
	id := pathVar(r, "id")
	delivered := domain.CoerceCount(body.DeliveredQuantity)

	var (
		req domain.ReplenishmentRequest
		err error
	)
	if status == domain.ReplenishmentStocked && delivered > 0 {
		req, err = h.svc.GetReplenishment(ctx, id)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		var inv domain.OrgInventory
		if c, ok := domain.CategoryFromItemName(string(req.Item)); ok {
			inv = inv.With(c, delivered)
		}
		req, _, err = h.svc.StockReplenishment(ctx, id, inv)
	} else {
		req, _, err = h.svc.SetReplenishmentStatus(ctx, id, status)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleGetMemberStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.MemberStatus(r.Context(), pathVar(r, "orgId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberStatusResponse{MemberStatusReport: report})
}

func (h *Handler) handleSetMemberStatus(w http.ResponseWriter, r *http.Request) {
	var body memberStatusBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.MemberID) == "" || strings.TrimSpace(body.Status) == "" {
		writeError(w, http.StatusBadRequest, "memberId and status required")
		return
	}
	ctx := r.Context()
	orgID := pathVar(r, "orgId")
	if _, _, err := h.svc.RecordMemberStatus(ctx, orgID, body.MemberID, domain.MemberStatus(body.Status)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	report, err := h.svc.MemberStatus(ctx, orgID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, memberStatusResponse{OK: true, MemberStatusReport: report})
}

func (h *Handler) handleGetBroadcast(w http.ResponseWriter, r *http.Request) {
	orgID := pathVar(r, "orgId")
	msg, err := h.svc.OrgBroadcast(r.Context(), orgID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, broadcastResponse{OrgID: orgID, Message: msg})
}

// handleSetBroadcast moderates and stores a broadcast. An empty message
// clears it.
func (h *Handler) handleSetBroadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	orgID := pathVar(r, "orgId")
	msg := strings.TrimSpace(body.Message)
	var (
		org domain.OrganizationProfile
		err error
	)
	if msg == "" {
		org, _, err = h.svc.ClearOrgBroadcast(ctx, orgID)
	} else {
		verdict, modErr := h.moderator.Moderate(ctx, msg)
		if modErr != nil {
			h.writeServiceError(w, r, modErr)
			return
		}
		org, _, err = h.svc.SetOrgBroadcast(ctx, orgID, msg, verdict)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, broadcastResponse{OrgID: org.ID, Message: org.CurrentBroadcast})
}

func (h *Handler) handleCreateHelp(w http.ResponseWriter, r *http.Request) {
	var intake domain.HelpRequestIntake
	if err := decode(r, &intake); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, _, err := h.svc.SubmitHelpRequestFor(r.Context(), pathVar(r, "userId"), intake)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleActiveHelp(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := h.svc.UserHelpRequest(r.Context(), pathVar(r, "userId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleHelpLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Location string `json:"location"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc := strings.TrimSpace(body.Location)
	if loc == "" {
		writeError(w, http.StatusBadRequest, "location required")
		return
	}
	rec, _, err := h.svc.UpdateHelpRequest(r.Context(), pathVar(r, "id"), domain.HelpRequestUpdate{Location: &loc})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleTicker resolves the ticker for ?userId=, or for the signed-in user.
func (h *Handler) handleTicker(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		msg string
		err error
	)
	if userID := strings.TrimSpace(r.URL.Query().Get("userId")); userID != "" {
		var profile domain.UserProfile
		profile, err = h.svc.GetUser(ctx, userID)
		if err == nil {
			msg, err = h.svc.Ticker(ctx, profile)
		}
	} else {
		msg, err = h.svc.CurrentTicker(ctx)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.ReplenishmentAggregation(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.SyncPending(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reconciled": n})
}

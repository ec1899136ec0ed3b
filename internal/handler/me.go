package handler

import (
	"net/http"
	"time"

	"caseopener-rest-api/internal/middleware"
	"caseopener-rest-api/internal/model"
	"caseopener-rest-api/internal/service"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// MeHandler serves the signed-in user's dashboard, inventory and history.
type MeHandler struct {
	economy *service.EconomyService
	history *service.HistoryService
}

// NewMeHandler creates a new me handler.
func NewMeHandler(economy *service.EconomyService, history *service.HistoryService) *MeHandler {
	return &MeHandler{economy: economy, history: history}
}

// InventoryItem is one inventory row as shown to the owner.
type InventoryItem struct {
	Item     model.ItemView `json:"item"`
	Quantity int64          `json:"quantity"`
	Subtotal int64          `json:"subtotal"`
}

// HistoryEntry is one acquisition as shown to the owner.
type HistoryEntry struct {
	Item      *model.ItemView `json:"item"`
	CaseID    int             `json:"case_id"`
	CaseName  string          `json:"case_name"`
	CreatedAt string          `json:"created_at"`
}

func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID <= 0 {
		response.Error(w, apierror.Unauthorized(""))
		return 0, false
	}
	return userID, true
}

// Summary handles GET /api/v1/me
func (h *MeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := h.economy.Summary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.OK(w, summary)
}

// Inventory handles GET /api/v1/me/inventory
func (h *MeHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	entries, err := h.economy.Inventory(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]InventoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, InventoryItem{
			Item:     e.Item.View(),
			Quantity: e.Quantity,
			Subtotal: e.Item.Value * e.Quantity,
		})
	}
	response.JSONWithMeta(w, http.StatusOK, items, len(items), 0)
}

// History handles GET /api/v1/me/history
func (h *MeHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.history.Recent(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entry := HistoryEntry{
			CaseID:    rec.CaseID,
			CaseName:  rec.CaseName,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if rec.Item != nil {
			view := rec.Item.View()
			entry.Item = &view
		}
		entries = append(entries, entry)
	}
	response.JSONWithMeta(w, http.StatusOK, entries, len(entries), h.history.Limit())
}

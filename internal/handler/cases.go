package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"caseopener-rest-api/internal/middleware"
	"caseopener-rest-api/internal/service"
	"caseopener-rest-api/pkg/apierror"
	"caseopener-rest-api/pkg/response"
)

// CaseHandler serves case definitions and case openings.
type CaseHandler struct {
	spins *service.SpinService
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(spins *service.SpinService) *CaseHandler {
	return &CaseHandler{spins: spins}
}

// ListCases handles GET /api/v1/cases
func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	cases := h.spins.ListCases()
	response.JSONWithMeta(w, http.StatusOK, cases, len(cases), 0)
}

// GetCase handles GET /api/v1/cases/{case_id}
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := caseIDParam(w, r)
	if !ok {
		return
	}

	cs, err := h.spins.GetCase(caseID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.OK(w, cs)
}

// Spin handles POST /api/v1/cases/{case_id}/spin
func (h *CaseHandler) Spin(w http.ResponseWriter, r *http.Request) {
	caseID, ok := caseIDParam(w, r)
	if !ok {
		return
	}

	result, err := h.spins.Spin(r.Context(), middleware.UserIDFromContext(r.Context()), caseID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.OK(w, result)
}

func caseIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	caseID, err := strconv.Atoi(chi.URLParam(r, "case_id"))
	if err != nil {
		response.Error(w, apierror.ValidationError("invalid case id",
			apierror.FieldError{Field: "case_id", Message: "Must be an integer"}))
		return 0, false
	}
	return caseID, true
}

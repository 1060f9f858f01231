package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/chatq/assist-backend/internal/api/middlewares"
	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/services"
)

// FaqHandler serves the admin FAQ endpoints. Every route sits behind the
// JWT middleware; the tenant always comes from the token claims.
type FaqHandler struct {
	faqs *services.FaqService
	log  *slog.Logger
}

func NewFaqHandler(faqs *services.FaqService, logger *slog.Logger) *FaqHandler {
	return &FaqHandler{faqs: faqs, log: logger}
}

func (h *FaqHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	var in services.FaqInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.faqs.CreateFaq(r.Context(), tenantID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (h *FaqHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	var inputs []services.FaqInput
	if err := decodeJSON(r, &inputs); err != nil {
		respondError(w, err)
		return
	}

	entries, err := h.faqs.CreateFaqsBatch(r.Context(), tenantID, inputs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entries)
}

func (h *FaqHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionViewFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	entries, err := h.faqs.ListFaqs(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *FaqHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionViewFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.faqs.GetFaq(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *FaqHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	var in services.FaqInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.faqs.UpdateFaq(r.Context(), tenantID, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *FaqHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := authorizeAdmin(r, services.ActionManageFaqs)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.faqs.DeleteFaq(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeAdmin resolves the request tenant from the token claims and
// checks the role against the action. Admin routes act on the actor's
// own tenant only.
func authorizeAdmin(r *http.Request, action services.Action) (string, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return "", core.ErrForbidden
	}
	if err := services.Authorize(claims.Role, claims.TenantID, claims.TenantID, action); err != nil {
		return "", err
	}
	return claims.TenantID, nil
}

package contacts

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clave/internal/transport/http/shared"
	dErrors "clave/pkg/domain-errors"
)

// Handler handles distribution directory endpoints.
type Handler struct {
	logger *slog.Logger
	svc    *Service
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register mounts the contact routes. The caller applies authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contacts", h.handleSave)
	r.Get("/contacts", h.handleList)
	r.Delete("/contacts/{id}", h.handleDelete)
	r.Post("/distribution-lists", h.handleCreateList)
	r.Get("/distribution-lists", h.handleLists)
	r.Delete("/distribution-lists/{id}", h.handleDeleteList)
}

type saveContactRequest struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Address string `json:"address"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	channel, err := ParseChannel(req.Channel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contact, err := h.svc.Save(r.Context(), req.Name, channel, req.Address)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, contact)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.List(r.Context(), Channel(r.URL.Query().Get("channel")))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if contacts == nil {
		contacts = []*Contact{}
	}
	shared.WriteJSON(w, http.StatusOK, contacts)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createListRequest struct {
	Name       string      `json:"name"`
	ContactIDs []uuid.UUID `json:"contact_ids"`
}

func (h *Handler) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	list, err := h.svc.CreateList(r.Context(), req.Name, req.ContactIDs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, list)
}

func (h *Handler) handleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.Lists(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if lists == nil {
		lists = []*DistributionList{}
	}
	shared.WriteJSON(w, http.StatusOK, lists)
}

func (h *Handler) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return
	}
	if err := h.svc.DeleteList(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

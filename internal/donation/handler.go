// internal/donation/handler.go
package donation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/RichKitibwa/BloodLink/internal/authz"
	"github.com/RichKitibwa/BloodLink/internal/blood"
	"github.com/RichKitibwa/BloodLink/internal/transport/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	var req struct {
		UnitIDs []uuid.UUID `json:"unit_ids"`
		Reason  string      `json:"reason"`
		Notes   string      `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	result, err := h.service.Publish(r.Context(), caller, PublishInput{
		UnitIDs: req.UnitIDs,
		Reason:  req.Reason,
		Notes:   req.Notes,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		web.WriteInvalidID(w, "offer ID")
		return
	}

	if err := h.service.Accept(r.Context(), caller, offerID); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	offerID, err := uuid.Parse(chi.URLParam(r, "offerID"))
	if err != nil {
		web.WriteInvalidID(w, "offer ID")
		return
	}

	if err := h.service.Cancel(r.Context(), caller, offerID); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	q := r.URL.Query()
	var f ListFilter
	if raw := q.Get("blood_type"); raw != "" {
		bt := blood.Type(raw)
		if !bt.Valid() {
			web.WriteValidation(w, "invalid query parameter blood_type")
			return
		}
		f.BloodType = &bt
	}
	if raw := q.Get("component"); raw != "" {
		c := blood.Component(raw)
		if !c.Valid() {
			web.WriteValidation(w, "invalid query parameter component")
			return
		}
		f.Component = &c
	}
	f.Region = q.Get("region")

	sortBy := SortKey(q.Get("sort_by"))
	switch sortBy {
	case "", SortByExpiry, SortByCreated, SortByDistance:
	default:
		web.WriteValidation(w, "invalid query parameter sort_by")
		return
	}

	listings, err := h.service.ListAvailable(r.Context(), caller, f, sortBy)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, listings)
}

func (h *Handler) HandleMySchedules(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	offers, err := h.service.MySchedules(r.Context(), caller)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, offers)
}

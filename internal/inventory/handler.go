// internal/inventory/handler.go
package inventory

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}
	if err := authz.RequireRole(caller, authz.RoleAdmin, authz.RoleBloodBankStaff); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	var req struct {
		BatchNumber    string     `json:"batch_number"`
		BloodType      string     `json:"blood_type"`
		Component      string     `json:"component"`
		Units          int        `json:"units"`
		DonationDate   time.Time  `json:"donation_date"`
		ExpiryDate     time.Time  `json:"expiry_date"`
		SourceLocation string     `json:"source_location"`
		HospitalID     *uuid.UUID `json:"hospital_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	unit, err := h.service.AddStock(r.Context(), AddStockInput{
		BatchNumber:    req.BatchNumber,
		BloodType:      blood.Type(req.BloodType),
		Component:      blood.Component(req.Component),
		Units:          req.Units,
		DonationDate:   req.DonationDate,
		ExpiryDate:     req.ExpiryDate,
		SourceLocation: req.SourceLocation,
		HospitalID:     req.HospitalID,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, unit)
}

func (h *Handler) HandleGetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		web.WriteInvalidID(w, "unit ID")
		return
	}

	unit, err := h.service.Get(r.Context(), id)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, unit)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		web.WriteValidation(w, err.Error())
		return
	}

	units, err := h.service.List(r.Context(), f)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, units)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) HandleNearExpiry(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			web.WriteValidation(w, "days must be a positive integer")
			return
		}
		days = parsed
	}

	units, err := h.service.NearExpiry(r.Context(), caller.HospitalID, days)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, units)
}

func (h *Handler) HandleCriticalExpiry(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	units, err := h.service.CriticalExpiry(r.Context(), caller.HospitalID)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, units)
}

func (h *Handler) HandleSweepExpiry(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}
	if err := authz.RequireRole(caller, authz.RoleAdmin, authz.RoleBloodBankStaff); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	n, err := h.service.SweepExpiry(r.Context(), time.Now().UTC())
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]int{"marked_expired": n})
}

func filterFromQuery(r *http.Request) (Filter, error) {
	var f Filter
	q := r.URL.Query()

	if raw := q.Get("blood_type"); raw != "" {
		bt := blood.Type(raw)
		if !bt.Valid() {
			return f, errInvalidQuery("blood_type")
		}
		f.BloodType = &bt
	}
	if raw := q.Get("component"); raw != "" {
		c := blood.Component(raw)
		if !c.Valid() {
			return f, errInvalidQuery("component")
		}
		f.Component = &c
	}
	if raw := q.Get("hospital_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, errInvalidQuery("hospital_id")
		}
		f.HospitalID = &id
	}
	f.IncludeExpired = q.Get("include_expired") == "true"
	f.UnreservedOnly = q.Get("unreserved_only") == "true"
	if raw := q.Get("min_units"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errInvalidQuery("min_units")
		}
		f.MinUnits = n
	}
	return f, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid query parameter " + string(e) }

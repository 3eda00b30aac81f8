// internal/emergency/handler.go
package emergency

import (
	"encoding/json"
	"net/http"
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

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	var req struct {
		BloodType        string    `json:"blood_type"`
		Component        string    `json:"component"`
		UnitsNeeded      int       `json:"units_needed"`
		PatientCondition string    `json:"patient_condition"`
		ContactPerson    string    `json:"contact_person"`
		ContactPhone     string    `json:"contact_phone"`
		ResponseDeadline time.Time `json:"response_deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	request, err := h.service.Create(r.Context(), caller, CreateInput{
		BloodType:        blood.Type(req.BloodType),
		Component:        blood.Component(req.Component),
		UnitsNeeded:      req.UnitsNeeded,
		PatientCondition: req.PatientCondition,
		ContactPerson:    req.ContactPerson,
		ContactPhone:     req.ContactPhone,
		ResponseDeadline: req.ResponseDeadline,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		web.WriteInvalidID(w, "request ID")
		return
	}

	var req struct {
		UnitsOffered          int        `json:"units_offered"`
		Message               string     `json:"message"`
		ContactPerson         string     `json:"contact_person"`
		ContactPhone          string     `json:"contact_phone"`
		EstimatedAvailability *time.Time `json:"estimated_availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	response, err := h.service.Respond(r.Context(), caller, requestID, RespondInput{
		UnitsOffered:          req.UnitsOffered,
		Message:               req.Message,
		ContactPerson:         req.ContactPerson,
		ContactPhone:          req.ContactPhone,
		EstimatedAvailability: req.EstimatedAvailability,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, response)
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListActive(r.Context())
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) HandleResponses(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		web.WriteInvalidID(w, "request ID")
		return
	}

	responses, err := h.service.Responses(r.Context(), caller, requestID)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, responses)
}

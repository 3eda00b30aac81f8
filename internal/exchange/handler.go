// internal/exchange/handler.go
package exchange

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
		TargetHospitalID *uuid.UUID `json:"target_hospital_id"`
		BloodType        string     `json:"blood_type"`
		Component        string     `json:"component"`
		UnitsRequested   int        `json:"units_requested"`
		Priority         string     `json:"priority"`
		Reason           string     `json:"reason"`
		PatientDetails   string     `json:"patient_details"`
		UrgencyNotes     string     `json:"urgency_notes"`
		ExpectedUseDate  *time.Time `json:"expected_use_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	request, err := h.service.Create(r.Context(), caller, CreateInput{
		TargetHospitalID: req.TargetHospitalID,
		BloodType:        blood.Type(req.BloodType),
		Component:        blood.Component(req.Component),
		UnitsRequested:   req.UnitsRequested,
		Priority:         blood.Priority(req.Priority),
		Reason:           req.Reason,
		PatientDetails:   req.PatientDetails,
		UrgencyNotes:     req.UrgencyNotes,
		ExpectedUseDate:  req.ExpectedUseDate,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
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

	request, err := h.service.Get(r.Context(), caller, requestID)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	q := r.URL.Query()
	f := ListFilter{
		HospitalID:   caller.HospitalID,
		ShowIncoming: q.Get("incoming") == "true",
		ShowOutgoing: q.Get("outgoing") == "true",
	}
	if raw := q.Get("status"); raw != "" {
		st := blood.RequestStatus(raw)
		if !st.Valid() {
			web.WriteValidation(w, "invalid query parameter status")
			return
		}
		f.Status = &st
	}
	if raw := q.Get("priority"); raw != "" {
		p := blood.Priority(raw)
		if !p.Valid() {
			web.WriteValidation(w, "invalid query parameter priority")
			return
		}
		f.Priority = &p
	}
	if raw := q.Get("blood_type"); raw != "" {
		bt := blood.Type(raw)
		if !bt.Valid() {
			web.WriteValidation(w, "invalid query parameter blood_type")
			return
		}
		f.BloodType = &bt
	}

	requests, err := h.service.List(r.Context(), caller, f)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.FromContext(r.Context())
	if !ok {
		web.WriteServiceError(w, blood.ErrForbidden)
		return
	}

	requests, err := h.service.Pending(r.Context(), caller)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, requests)
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
		EstimatedAvailability *time.Time `json:"estimated_availability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	response, err := h.service.Respond(r.Context(), caller, requestID, RespondInput{
		UnitsOffered:          req.UnitsOffered,
		Message:               req.Message,
		EstimatedAvailability: req.EstimatedAvailability,
	})
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusCreated, response)
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

func (h *Handler) HandleAcceptResponse(w http.ResponseWriter, r *http.Request) {
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
	responseID, err := uuid.Parse(chi.URLParam(r, "responseID"))
	if err != nil {
		web.WriteInvalidID(w, "response ID")
		return
	}

	if err := h.service.AcceptResponse(r.Context(), caller, requestID, responseID); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
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
		Status          string `json:"status"`
		RejectionReason string `json:"rejection_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteInvalidBody(w)
		return
	}

	request, err := h.service.UpdateStatus(r.Context(), caller, requestID, blood.RequestStatus(req.Status), req.RejectionReason)
	if err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Cancel(r.Context(), caller, requestID); err != nil {
		web.WriteServiceError(w, err)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

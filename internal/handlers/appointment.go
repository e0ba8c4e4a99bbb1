package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/nutripanel/nutripanel-api/internal/models"
	"github.com/nutripanel/nutripanel-api/internal/scheduling"
)

type AppointmentHandler struct {
	service scheduling.Service
	logger  zerolog.Logger
}

func NewAppointmentHandler(service scheduling.Service, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		logger:  logger.With().Str("handler", "appointment").Logger(),
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PatientID       string    `json:"patient_id"`
		ProviderID      string    `json:"provider_id"`
		ClinicID        string    `json:"clinic_id"`
		StartAt         time.Time `json:"start_at"`
		DurationMinutes int       `json:"duration_minutes"`
		Type            string    `json:"type"`
		Reason          string    `json:"reason"`
		NotesPre        string    `json:"notes_pre"`
		CreatedBy       string    `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	appt, err := h.service.CreateAppointment(r.Context(), scheduling.CreateAppointmentParams{
		PatientID:       payload.PatientID,
		ProviderID:      payload.ProviderID,
		ClinicID:        payload.ClinicID,
		StartAt:         payload.StartAt,
		DurationMinutes: payload.DurationMinutes,
		Type:            models.AppointmentType(payload.Type),
		Reason:          payload.Reason,
		NotesPre:        payload.NotesPre,
		CreatedBy:       payload.CreatedBy,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to create appointment")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["appointmentID"])
	if id == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		StartAt         *time.Time `json:"start_at"`
		DurationMinutes *int       `json:"duration_minutes"`
		ProviderID      *string    `json:"provider_id"`
		Type            *string    `json:"type"`
		Reason          *string    `json:"reason"`
		NotesPre        *string    `json:"notes_pre"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	params := scheduling.UpdateAppointmentParams{
		StartAt:         payload.StartAt,
		DurationMinutes: payload.DurationMinutes,
		ProviderID:      payload.ProviderID,
		Reason:          payload.Reason,
		NotesPre:        payload.NotesPre,
	}
	if payload.Type != nil {
		t := models.AppointmentType(*payload.Type)
		params.Type = &t
	}

	appt, err := h.service.UpdateAppointment(r.Context(), id, params)
	if err != nil {
		h.logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to update appointment")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["appointmentID"])
	if id == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&payload)
	}

	appt, err := h.service.CancelAppointment(r.Context(), id, payload.Reason)
	if err != nil {
		h.logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to cancel appointment")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["appointmentID"])
	if id == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&payload)
	}

	appt, err := h.service.CompleteAppointment(r.Context(), id, payload.Notes)
	if err != nil {
		h.logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to complete appointment")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["appointmentID"])
	if id == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	var payload struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	appt, err := h.service.TransitionState(r.Context(), id, models.AppointmentState(payload.State))
	if err != nil {
		h.logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to transition appointment")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(mux.Vars(r)["providerID"])

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "Invalid or missing start parameter (RFC 3339)", http.StatusBadRequest)
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		http.Error(w, "Invalid or missing duration parameter", http.StatusBadRequest)
		return
	}
	excludeID := strings.TrimSpace(r.URL.Query().Get("exclude"))

	available, err := h.service.CheckAvailability(r.Context(), providerID, start, duration, excludeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *AppointmentHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(mux.Vars(r)["providerID"])

	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	appts, err := h.service.ListUpcoming(r.Context(), providerID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("provider_id", providerID).Msg("failed to list upcoming appointments")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appts,
	})
}

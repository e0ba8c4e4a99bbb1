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
	"github.com/nutripanel/nutripanel-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type          string     `json:"type"`
		Title         string     `json:"title"`
		Message       string     `json:"message"`
		RecipientID   string     `json:"recipient_id"`
		PatientID     *string    `json:"patient_id"`
		AppointmentID *string    `json:"appointment_id"`
		ScheduledFor  *time.Time `json:"scheduled_for"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	notif, err := h.service.Create(r.Context(), notification.CreateParams{
		Type:          models.NotificationType(payload.Type),
		Title:         payload.Title,
		Message:       payload.Message,
		RecipientID:   payload.RecipientID,
		PatientID:     payload.PatientID,
		AppointmentID: payload.AppointmentID,
		ScheduledFor:  payload.ScheduledFor,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to create notification")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, notif)
}

// CreateReminder generates (or returns the existing) reminder for an
// appointment.
func (h *NotificationHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	appointmentID := strings.TrimSpace(mux.Vars(r)["appointmentID"])
	if appointmentID == "" {
		http.Error(w, "Appointment ID is required", http.StatusBadRequest)
		return
	}

	leadDays := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("lead_days")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			leadDays = parsed
		}
	}

	notif, err := h.service.CreateAppointmentReminder(r.Context(), appointmentID, leadDays)
	if err != nil {
		h.logger.Warn().Err(err).Str("appointment_id", appointmentID).Msg("failed to create reminder")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, notif)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromRequest(r)
	if !ok {
		http.Error(w, "Recipient is required", http.StatusBadRequest)
		return
	}

	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.service.ListRecent(r.Context(), recipientID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}
	recipientID, _ := recipientFromRequest(r)

	notif, err := h.service.MarkRead(r.Context(), notifID, recipientID)
	if err != nil {
		h.logger.Warn().Err(err).Str("notification_id", notifID).Msg("failed to mark notification as read")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromRequest(r)
	if !ok {
		http.Error(w, "Recipient is required", http.StatusBadRequest)
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), recipientID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to mark notifications as read")
		http.Error(w, "Failed to update notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *NotificationHandler) CountUnread(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromRequest(r)
	if !ok {
		http.Error(w, "Recipient is required", http.StatusBadRequest)
		return
	}

	count, err := h.service.CountUnread(r.Context(), recipientID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to count unread notifications")
		http.Error(w, "Failed to count notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}
	recipientID, _ := recipientFromRequest(r)

	if err := h.service.Delete(r.Context(), notifID, recipientID); err != nil {
		h.logger.Warn().Err(err).Str("notification_id", notifID).Msg("failed to delete notification")
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recipientFromRequest reads the recipient scope from the query string. The
// auth layer in front of this service normally injects it; it stays explicit
// here because authentication is outside this service's scope.
func recipientFromRequest(r *http.Request) (string, bool) {
	recipient := strings.TrimSpace(r.URL.Query().Get("recipient_id"))
	return recipient, recipient != ""
}

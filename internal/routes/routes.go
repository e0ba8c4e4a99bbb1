package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nutripanel/nutripanel-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(appointments *handlers.AppointmentHandler, notifications *handlers.NotificationHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Appointments
	router.HandleFunc("/api/appointments", appointments.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/appointments/{appointmentID}", appointments.Update).Methods(http.MethodPut)
	router.HandleFunc("/api/appointments/{appointmentID}/cancel", appointments.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/api/appointments/{appointmentID}/complete", appointments.Complete).Methods(http.MethodPost)
	router.HandleFunc("/api/appointments/{appointmentID}/state", appointments.Transition).Methods(http.MethodPost)
	router.HandleFunc("/api/providers/{providerID}/availability", appointments.CheckAvailability).Methods(http.MethodGet)
	router.HandleFunc("/api/providers/{providerID}/appointments/upcoming", appointments.ListUpcoming).Methods(http.MethodGet)

	// Notifications
	router.HandleFunc("/api/notifications", notifications.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/notifications", notifications.List).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/unread-count", notifications.CountUnread).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/read-all", notifications.MarkAllRead).Methods(http.MethodPost)
	router.HandleFunc("/api/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)
	router.HandleFunc("/api/notifications/{notificationID}", notifications.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/api/appointments/{appointmentID}/reminder", notifications.CreateReminder).Methods(http.MethodPost)

	return router
}

package notification

import (
	"fmt"
	"html"
	"strings"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

// BuildPayload renders the delivery subject and HTML body for a due
// notification. The switch over the type is closed: a record with a type this
// build does not know is a bug, not something to deliver half-rendered.
func BuildPayload(due DueNotification) (subject, htmlBody string, err error) {
	n := due.Notification
	switch n.Type {
	case models.NotificationTypeReminder:
		subject = "Appointment reminder"
		var when string
		if due.AppointmentStart != nil {
			when = due.AppointmentStart.Format("Monday, 02 Jan 2006 at 15:04")
		}
		greeting := "Hello,"
		if due.PatientName != "" {
			greeting = fmt.Sprintf("Hello %s,", html.EscapeString(due.PatientName))
		}
		body := strings.Builder{}
		body.WriteString("<p>" + greeting + "</p>")
		if when != "" {
			body.WriteString(fmt.Sprintf("<p>This is a reminder of your upcoming appointment on <strong>%s</strong>.</p>", when))
		} else {
			body.WriteString("<p>This is a reminder of your upcoming appointment.</p>")
		}
		if msg := strings.TrimSpace(n.Message); msg != "" {
			body.WriteString("<p>" + html.EscapeString(msg) + "</p>")
		}
		body.WriteString("<p>If you cannot attend, please contact the clinic to reschedule.</p>")
		return subject, body.String(), nil

	case models.NotificationTypeStaleFollowup:
		subject = "Patient follow-up needed"
		body := strings.Builder{}
		body.WriteString("<p>Hello,</p>")
		if due.PatientName != "" {
			body.WriteString(fmt.Sprintf("<p>Patient <strong>%s</strong> has had no recent activity and may need a follow-up.</p>", html.EscapeString(due.PatientName)))
		}
		if msg := strings.TrimSpace(n.Message); msg != "" {
			body.WriteString("<p>" + html.EscapeString(msg) + "</p>")
		}
		return subject, body.String(), nil

	case models.NotificationTypeBirthday:
		subject = "Happy birthday!"
		name := "there"
		if due.PatientName != "" {
			name = html.EscapeString(due.PatientName)
		}
		return subject, fmt.Sprintf("<p>Happy birthday, %s! Best wishes from your clinic.</p>", name), nil

	case models.NotificationTypeSystem, models.NotificationTypeAlert:
		subject = strings.TrimSpace(n.Title)
		if subject == "" {
			subject = "Notification"
		}
		return subject, "<p>" + html.EscapeString(strings.TrimSpace(n.Message)) + "</p>", nil
	}

	return "", "", fmt.Errorf("no payload builder for notification type %q", n.Type)
}

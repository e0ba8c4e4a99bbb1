package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

// fakeStore is an in-memory outbox honoring the dedupe-key contract.
type fakeStore struct {
	mu     sync.Mutex
	seq    int
	items  map[string]*models.Notification
	emails map[string]string // recipient/patient id -> email
	names  map[string]string // patient id -> name
	starts map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:  make(map[string]*models.Notification),
		emails: make(map[string]string),
		names:  make(map[string]string),
		starts: make(map[string]time.Time),
	}
}

func (f *fakeStore) Create(_ context.Context, params CreateParams) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if params.DedupeKey != nil {
		for _, existing := range f.items {
			if existing.Active && existing.DedupeKey != nil && *existing.DedupeKey == *params.DedupeKey {
				return *existing, nil
			}
		}
	}

	f.seq++
	now := time.Now()
	notif := &models.Notification{
		ID:            fmt.Sprintf("notif-%d", f.seq),
		Type:          params.Type,
		Title:         params.Title,
		Message:       params.Message,
		RecipientID:   params.RecipientID,
		PatientID:     params.PatientID,
		AppointmentID: params.AppointmentID,
		ScheduledFor:  params.ScheduledFor,
		Active:        true,
		DedupeKey:     params.DedupeKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.items[notif.ID] = notif
	return *notif, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notif, ok := f.items[id]
	if !ok {
		return models.Notification{}, ErrNotFound
	}
	return *notif, nil
}

func (f *fakeStore) ListDue(_ context.Context, now time.Time, limit int) ([]DueNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var due []DueNotification
	for _, notif := range f.items {
		if !notif.Active || notif.Delivered {
			continue
		}
		if notif.ScheduledFor != nil && notif.ScheduledFor.After(now) {
			continue
		}
		item := DueNotification{Notification: *notif}
		if notif.Type == models.NotificationTypeReminder && notif.PatientID != nil {
			item.RecipientEmail = f.emails[*notif.PatientID]
		} else {
			item.RecipientEmail = f.emails[notif.RecipientID]
		}
		if item.RecipientEmail == "" {
			continue
		}
		if notif.PatientID != nil {
			item.PatientName = f.names[*notif.PatientID]
		}
		if notif.AppointmentID != nil {
			if start, ok := f.starts[*notif.AppointmentID]; ok {
				t := start
				item.AppointmentStart = &t
			}
		}
		due = append(due, item)
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].Notification.ScheduledFor, due[j].Notification.ScheduledFor
		switch {
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (f *fakeStore) MarkDelivered(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notif, ok := f.items[id]
	if !ok || notif.Delivered {
		return ErrNotFound
	}
	notif.Delivered = true
	notif.DeliveredAt = &at
	return nil
}

func (f *fakeStore) MarkRead(_ context.Context, id, recipientID string) (models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notif, ok := f.items[id]
	if !ok || (recipientID != "" && notif.RecipientID != recipientID) {
		return models.Notification{}, ErrNotFound
	}
	notif.Read = true
	if notif.ReadAt == nil {
		now := time.Now()
		notif.ReadAt = &now
	}
	return *notif, nil
}

func (f *fakeStore) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	for _, notif := range f.items {
		if notif.RecipientID == recipientID && notif.Active && !notif.Read {
			notif.Read = true
			now := time.Now()
			notif.ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (f *fakeStore) CountUnread(_ context.Context, recipientID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, notif := range f.items {
		if notif.RecipientID == recipientID && notif.Active && !notif.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Deactivate(_ context.Context, id, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notif, ok := f.items[id]
	if !ok || (recipientID != "" && notif.RecipientID != recipientID) {
		return ErrNotFound
	}
	notif.Active = false
	return nil
}

func (f *fakeStore) ListRecent(_ context.Context, recipientID string, limit int) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var notifications []models.Notification
	for _, notif := range f.items {
		if notif.RecipientID == recipientID && notif.Active {
			notifications = append(notifications, *notif)
		}
	}
	if len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *fakeStore) get(id string) models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.items[id]
}

// fakeGateway records sends and fails on demand.
type fakeGateway struct {
	mu      sync.Mutex
	calls   []string // recipient emails in call order
	failFor map[string]bool
	failAll bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failFor: make(map[string]bool)}
}

func (g *fakeGateway) Send(_ context.Context, to, _, _ string) (SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, to)
	if g.failAll || g.failFor[to] {
		return SendResult{}, errors.New("smtp connection refused")
	}
	return SendResult{MessageID: fmt.Sprintf("msg-%d", len(g.calls))}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeSettings struct {
	deliveryEnabled bool
	leadDays        int
}

func (s *fakeSettings) EmailDeliveryEnabled(context.Context) (bool, error) {
	return s.deliveryEnabled, nil
}

func (s *fakeSettings) ReminderLeadDays(context.Context) (int, error) {
	if s.leadDays <= 0 {
		return 1, nil
	}
	return s.leadDays, nil
}

type fakeAppointments struct {
	mu       sync.Mutex
	appts    map[string]models.Appointment
	reminded map[string]bool
}

func newFakeAppointments(appts ...models.Appointment) *fakeAppointments {
	f := &fakeAppointments{
		appts:    make(map[string]models.Appointment),
		reminded: make(map[string]bool),
	}
	for _, appt := range appts {
		f.appts[appt.ID] = appt
	}
	return f
}

func (f *fakeAppointments) GetAppointment(_ context.Context, id string) (models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.appts[id]
	if !ok {
		return models.Appointment{}, errors.Errorf("appointment %s not found", id)
	}
	return appt, nil
}

func (f *fakeAppointments) ListNeedingReminder(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, appt := range f.appts {
		if f.reminded[appt.ID] {
			continue
		}
		if appt.StartAt.Before(from) || !appt.StartAt.Before(to) {
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}

func (f *fakeAppointments) SetReminderSent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminded[id] = true
	return nil
}

type fakePatients struct {
	patients map[string]models.Patient
	stale    []models.Patient
}

func (f *fakePatients) GetPatient(_ context.Context, id string) (models.Patient, error) {
	patient, ok := f.patients[id]
	if !ok {
		return models.Patient{}, errors.Errorf("patient %s not found", id)
	}
	return patient, nil
}

func (f *fakePatients) ListStale(context.Context, time.Time) ([]models.Patient, error) {
	return f.stale, nil
}

type fakeStaff struct {
	users map[string]models.User
}

func (f *fakeStaff) GetUser(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, errors.Errorf("user %s not found", id)
	}
	return user, nil
}

package notification

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutripanel/nutripanel-api/internal/models"
)

func newTestReminderGenerator(store *fakeStore, appts *fakeAppointments, patients *fakePatients, now time.Time) *ReminderGenerator {
	svc := newTestService(store, appts, patients, &fakeSettings{leadDays: 1})
	g := NewReminderGenerator(svc, appts, patients, zerolog.Nop())
	g.now = func() time.Time { return now }
	return g
}

func TestReminderScanGeneratesOnce(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	appts := newFakeAppointments(testAppointment("appt-1", "pat-1", now.Add(26*time.Hour)))
	patients := &fakePatients{patients: map[string]models.Patient{
		"pat-1": testPatient("pat-1", "Ada Silva", "ada@example.com"),
	}}
	store := newFakeStore()
	g := newTestReminderGenerator(store, appts, patients, now)

	created, err := g.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, store.count())
	assert.True(t, appts.reminded["appt-1"])

	// The reminded flag keeps the appointment out of the next scan.
	created, err = g.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, store.count())
}

func TestReminderScanDedupesWhenFlagWriteLost(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	appts := newFakeAppointments(testAppointment("appt-1", "pat-1", now.Add(26*time.Hour)))
	patients := &fakePatients{patients: map[string]models.Patient{
		"pat-1": testPatient("pat-1", "Ada Silva", "ada@example.com"),
	}}
	store := newFakeStore()
	g := newTestReminderGenerator(store, appts, patients, now)

	_, err := g.RunCycle(context.Background())
	require.NoError(t, err)

	// Simulate a crash between outbox insert and flag update: the next scan
	// sees the appointment again but the dedupe key absorbs the duplicate.
	appts.reminded["appt-1"] = false
	_, err = g.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
}

func TestReminderScanSkipsPatientsWithoutEmail(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	appts := newFakeAppointments(
		testAppointment("appt-1", "pat-1", now.Add(4*time.Hour)),
		testAppointment("appt-2", "pat-2", now.Add(5*time.Hour)),
	)
	patients := &fakePatients{patients: map[string]models.Patient{
		"pat-1": testPatient("pat-1", "Ada Silva", ""),
		"pat-2": testPatient("pat-2", "Bjorn Mats", "bjorn@example.com"),
	}}
	store := newFakeStore()
	g := newTestReminderGenerator(store, appts, patients, now)

	created, err := g.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, store.count())
}

func TestReminderScanWindowExcludesFarFuture(t *testing.T) {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	appts := newFakeAppointments(
		testAppointment("appt-soon", "pat-1", now.Add(20*time.Hour)),
		testAppointment("appt-far", "pat-1", now.Add(5*24*time.Hour)),
	)
	patients := &fakePatients{patients: map[string]models.Patient{
		"pat-1": testPatient("pat-1", "Ada Silva", "ada@example.com"),
	}}
	store := newFakeStore()
	g := newTestReminderGenerator(store, appts, patients, now)

	created, err := g.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.True(t, appts.reminded["appt-soon"])
	assert.False(t, appts.reminded["appt-far"])
}

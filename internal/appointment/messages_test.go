package appointment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/calendar"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
)

func testMessages(t *testing.T) *appointment.Messages {
	t.Helper()
	conv, err := schedule.NewConverter(testZone)
	require.NoError(t, err)
	return appointment.NewMessages(conv, appointment.MessageConfig{
		Title:          "Meeting with the pastor",
		OrganizerEmail: "office@grace.org",
		Location:       "Church office",
	})
}

func TestMessages_EventLocationByMedium(t *testing.T) {
	m := testMessages(t)
	link := "https://meet.example.org/abc"
	b := &appointment.Booking{
		ID:           "b-1",
		Email:        "jane@example.org",
		Phone:        "+12127365000",
		SlotStartUTC: time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC),
		Status:       appointment.StatusConfirmed,
		MeetingLink:  &link,
	}

	b.Medium = appointment.MediumOnline
	assert.Equal(t, link, m.Event(b, calendar.MethodPublish).Location)

	b.Medium = appointment.MediumPhone
	assert.Equal(t, "Phone call to +12127365000", m.Event(b, calendar.MethodPublish).Location)

	b.Medium = appointment.MediumInPerson
	e := m.Event(b, calendar.MethodPublish)
	assert.Equal(t, "Church office", e.Location)
	assert.Equal(t, calendar.StatusConfirmed, e.Status)
	assert.Equal(t, "b-1@appointments", e.UID)
	assert.Zero(t, e.Sequence)
}

func TestMessages_CancellationSupersedesInvite(t *testing.T) {
	m := testMessages(t)
	b := &appointment.Booking{
		ID:           "b-2",
		FullName:     "Jane Doe",
		Email:        "jane@example.org",
		SlotStartUTC: time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC),
		Medium:       appointment.MediumInPerson,
		Status:       appointment.StatusCancelled,
	}

	n := m.Cancellation(b, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "jane@example.org", n.To)
	assert.Contains(t, n.Subject, "Monday, March 16, 2026 at 3:00 PM EDT")

	require.Len(t, n.Attachments, 1)
	ics := string(n.Attachments[0].Data)
	assert.Contains(t, ics, "METHOD:CANCEL")
	assert.Contains(t, ics, "STATUS:CANCELLED")
	assert.Contains(t, ics, "SEQUENCE:1")

	assert.Contains(t, m.Export(b, time.Now()), "METHOD:CANCEL")
}

func TestMessages_ReminderIncludesLink(t *testing.T) {
	m := testMessages(t)
	link := "https://meet.example.org/abc"
	b := &appointment.Booking{
		ID:           "b-3",
		FullName:     "Jane Doe",
		Email:        "jane@example.org",
		SlotStartUTC: time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC),
		Medium:       appointment.MediumOnline,
		Status:       appointment.StatusPending,
		MeetingLink:  &link,
	}

	n := m.Reminder(b)
	assert.Contains(t, n.Body, "Meeting link: "+link)
	assert.Contains(t, n.Body, "Booking reference: b-3")
	assert.Empty(t, n.Attachments)
}

package appointment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/auth"
)

func TestCanTransition(t *testing.T) {
	all := []appointment.Status{
		appointment.StatusPending,
		appointment.StatusConfirmed,
		appointment.StatusCompleted,
		appointment.StatusCancelled,
	}
	legal := map[[2]appointment.Status]bool{
		{appointment.StatusPending, appointment.StatusConfirmed}:   true,
		{appointment.StatusPending, appointment.StatusCancelled}:   true,
		{appointment.StatusConfirmed, appointment.StatusCompleted}: true,
		{appointment.StatusConfirmed, appointment.StatusCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]appointment.Status{from, to}]
			assert.Equal(t, want, appointment.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition(t *testing.T) {
	slot := time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC)
	now := slot.Add(-time.Hour)

	t.Run("legal move updates status", func(t *testing.T) {
		b := &appointment.Booking{Status: appointment.StatusPending, SlotStartUTC: slot}
		require.NoError(t, appointment.Transition(b, appointment.StatusConfirmed, now))
		assert.Equal(t, appointment.StatusConfirmed, b.Status)
		assert.Equal(t, now, b.UpdatedAt)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		b := &appointment.Booking{Status: appointment.StatusCancelled, SlotStartUTC: slot}
		require.NoError(t, appointment.Transition(b, appointment.StatusCancelled, now))
		assert.True(t, b.UpdatedAt.IsZero())
	})

	t.Run("terminal states stay put", func(t *testing.T) {
		for _, from := range []appointment.Status{appointment.StatusCancelled, appointment.StatusCompleted} {
			b := &appointment.Booking{Status: from, SlotStartUTC: slot}
			before := *b
			err := appointment.Transition(b, appointment.StatusPending, now)
			assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
			assert.Equal(t, before, *b)
		}
	})

	t.Run("pending cannot complete", func(t *testing.T) {
		b := &appointment.Booking{Status: appointment.StatusPending, SlotStartUTC: slot}
		err := appointment.Transition(b, appointment.StatusCompleted, slot.Add(time.Hour))
		assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
		assert.Equal(t, appointment.StatusPending, b.Status)
	})

	t.Run("complete waits for the start", func(t *testing.T) {
		b := &appointment.Booking{Status: appointment.StatusConfirmed, SlotStartUTC: slot}
		err := appointment.Transition(b, appointment.StatusCompleted, now)
		assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
		assert.Equal(t, appointment.StatusConfirmed, b.Status)

		require.NoError(t, appointment.Transition(b, appointment.StatusCompleted, slot))
		assert.Equal(t, appointment.StatusCompleted, b.Status)
	})
}

func TestAllowedFor(t *testing.T) {
	assert.True(t, appointment.AllowedFor(auth.RoleStaff, appointment.StatusConfirmed))
	assert.True(t, appointment.AllowedFor(auth.RoleStaff, appointment.StatusCancelled))
	assert.False(t, appointment.AllowedFor(auth.RoleStaff, appointment.StatusCompleted))
	assert.True(t, appointment.AllowedFor(auth.RolePastor, appointment.StatusCompleted))
	assert.True(t, appointment.AllowedFor(auth.RoleAdmin, appointment.StatusCompleted))
	assert.False(t, appointment.AllowedFor(auth.RoleAdmin, appointment.StatusPending))
	assert.False(t, appointment.AllowedFor(auth.Role("guest"), appointment.StatusCancelled))
}

func TestMarkReminderSent(t *testing.T) {
	b := &appointment.Booking{}
	at := time.Date(2026, 3, 15, 20, 0, 0, 0, time.FixedZone("EDT", -4*3600))

	appointment.MarkReminderSent(b, at)

	assert.True(t, b.ReminderSent)
	require.NotNil(t, b.LastReminderSentAt)
	assert.Equal(t, time.UTC, b.LastReminderSentAt.Location())
	assert.True(t, at.Equal(*b.LastReminderSentAt))
}

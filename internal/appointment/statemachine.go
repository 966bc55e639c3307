package appointment

import (
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
)

// transitions lists the legal status moves. Completed and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// transitionRoles lists who may move a booking into each status.
var transitionRoles = map[Status][]auth.Role{
	StatusConfirmed: {auth.RoleAdmin, auth.RolePastor, auth.RoleStaff},
	StatusCancelled: {auth.RoleAdmin, auth.RolePastor, auth.RoleStaff},
	StatusCompleted: {auth.RoleAdmin, auth.RolePastor},
}

// CanTransition reports whether from -> to is a legal move. Staying put is not a transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves b to status to as of now. On error b is left untouched.
// Asking for the current status is a no-op.
func Transition(b *Booking, to Status, now time.Time) error {
	if b.Status == to {
		return nil
	}
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition.WithDetails(map[string]any{
			"from": b.Status,
			"to":   to,
		})
	}
	if to == StatusCompleted && now.Before(b.SlotStartUTC) {
		return ErrInvalidTransition.WithDetails(map[string]any{
			"from":   b.Status,
			"to":     to,
			"reason": "appointment has not started yet",
		})
	}

	b.Status = to
	b.UpdatedAt = now
	return nil
}

// AllowedFor reports whether role may move a booking into to.
func AllowedFor(role auth.Role, to Status) bool {
	return role.In(transitionRoles[to]...)
}

// MarkReminderSent flips the reminder flag. It is the only way the flag changes.
func MarkReminderSent(b *Booking, now time.Time) {
	at := now.UTC()
	b.ReminderSent = true
	b.LastReminderSentAt = &at
}

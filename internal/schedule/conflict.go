package schedule

import "time"

// Occupant is an existing reservation as seen by the buffer rule.
// Inactive occupants (cancelled bookings) never block a slot.
type Occupant interface {
	SlotStart() time.Time
	Active() bool
}

// Conflicts reports whether candidate lies strictly closer than buffer to any active occupant.
// Two starts exactly buffer apart do not conflict; identical starts always do.
func Conflicts(candidate time.Time, existing []Occupant, buffer time.Duration) bool {
	for _, o := range existing {
		if !o.Active() {
			continue
		}
		if d := absDuration(candidate.Sub(o.SlotStart())); d == 0 || d < buffer {
			return true
		}
	}
	return false
}

// FilterAvailable keeps the slots that do not conflict with existing occupants, preserving order.
func FilterAvailable(slots []Slot, existing []Occupant, buffer time.Duration) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if Conflicts(s.StartUTC, existing, buffer) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// QueryRange is the half-open range [from, to) of occupant starts that can affect any of
// the ascending candidates. Anything outside it is at least buffer away from every candidate.
// to sits one microsecond (store precision) past last+buffer so a zero buffer still covers last.
func QueryRange(candidates []time.Time, buffer time.Duration) (from, to time.Time, ok bool) {
	if len(candidates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first := candidates[0]
	last := candidates[len(candidates)-1]
	return first.Add(-buffer), last.Add(buffer).Add(time.Microsecond), true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

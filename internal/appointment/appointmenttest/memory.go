// Package appointmenttest provides in-memory doubles for exercising the
// appointment service without PostgreSQL.
package appointmenttest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/notify"
)

// Repository is a goroutine-safe appointment.Repository kept in a map.
// It enforces the same buffer rule and optimistic status guard as the pgx one.
type Repository struct {
	mu       sync.Mutex
	bookings map[string]*appointment.Booking
	claimed  map[string]bool

	// Err, when set, is returned by every call.
	Err error
}

var _ appointment.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		bookings: make(map[string]*appointment.Booking),
		claimed:  make(map[string]bool),
	}
}

// Put stores b as is, bypassing the conflict check. Used to seed fixtures.
func (r *Repository) Put(b *appointment.Booking) *appointment.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CancelToken == "" {
		b.CancelToken = uuid.NewString()
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return b
}

// Snapshot returns a copy of the stored booking, or nil.
func (r *Repository) Snapshot(id string) *appointment.Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *Repository) Query(ctx context.Context, filter appointment.Filter) ([]*appointment.Booking, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	var out []*appointment.Booking
	for _, b := range r.bookings {
		if !matches(b, filter) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}

	desc := strings.EqualFold(filter.SortOrder, "desc")
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].SlotStartUTC.After(out[j].SlotStartUTC)
		}
		return out[i].SlotStartUTC.Before(out[j].SlotStartUTC)
	})

	total := len(out)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func matches(b *appointment.Booking, f appointment.Filter) bool {
	if len(f.StatusIn) > 0 {
		found := false
		for _, s := range f.StatusIn {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.From != nil && b.SlotStartUTC.Before(*f.From) {
		return false
	}
	if f.To != nil && !b.SlotStartUTC.Before(*f.To) {
		return false
	}
	if f.Email != "" && !strings.EqualFold(b.Email, f.Email) {
		return false
	}
	if f.ReminderSent != nil && b.ReminderSent != *f.ReminderSent {
		return false
	}
	return true
}

func (r *Repository) GetByID(ctx context.Context, id string) (*appointment.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	b, ok := r.bookings[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *Repository) CreateIfAvailable(ctx context.Context, b *appointment.Booking, buffer time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	for _, existing := range r.bookings {
		if !existing.Active() {
			continue
		}
		d := existing.SlotStartUTC.Sub(b.SlotStartUTC)
		if d < 0 {
			d = -d
		}
		if d == 0 || d < buffer {
			return appointment.ErrSlotConflict
		}
	}

	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *Repository) Update(ctx context.Context, b *appointment.Booking, from appointment.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}

	stored, ok := r.bookings[b.ID]
	if !ok {
		return appointment.ErrNotFound
	}
	if stored.Status != from {
		return appointment.ErrInvalidTransition
	}
	stored.Status = b.Status
	stored.Remark = b.Remark
	stored.MeetingLink = b.MeetingLink
	stored.UpdatedAt = time.Now().UTC()
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *Repository) ClaimReminder(ctx context.Context, id string, statuses []appointment.Status, fn func(b *appointment.Booking) error) (bool, error) {
	r.mu.Lock()
	if r.Err != nil {
		r.mu.Unlock()
		return false, r.Err
	}
	stored, ok := r.bookings[id]
	eligible := ok && !stored.ReminderSent && !r.claimed[id]
	if eligible {
		eligible = false
		for _, s := range statuses {
			if stored.Status == s {
				eligible = true
				break
			}
		}
	}
	if !eligible {
		r.mu.Unlock()
		return false, nil
	}
	r.claimed[id] = true
	cp := *stored
	r.mu.Unlock()

	// fn runs outside the lock like a row held FOR UPDATE.
	err := fn(&cp)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, id)
	if err != nil {
		return false, err
	}
	stored.ReminderSent = cp.ReminderSent
	stored.LastReminderSentAt = cp.LastReminderSentAt
	return true, nil
}

// ErrSend is what a failing Sender returns.
var ErrSend = errors.New("smtp relay refused message")

// Sender records notifications. Addresses listed in FailFor are rejected.
type Sender struct {
	mu      sync.Mutex
	sent    []notify.Notification
	FailFor map[string]bool
	FailAll bool
}

var _ notify.Sender = (*Sender)(nil)

func (s *Sender) Send(ctx context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll || s.FailFor[n.To] {
		return ErrSend
	}
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a copy of every accepted notification.
func (s *Sender) Sent() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.sent...)
}

package appointment

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/notify"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/logger"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
)

const maxNameLength = 200

// requesterRules mirrors the binding tags on the booking request so callers
// outside HTTP get the same checks.
var requesterRules = validator.New()

// activeStatuses are the statuses that occupy a slot.
var activeStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

// Config holds the booking rules and I/O budgets.
type Config struct {
	Buffer        time.Duration
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	PhoneRegion   string
}

// CreateRequest is a requester's booking attempt. SlotLocal is authority-local
// "YYYY-MM-DDTHH:mm".
type CreateRequest struct {
	FullName  string
	Phone     string
	Email     string
	SlotLocal string
	Medium    string
	Remark    *string
}

// CreateResult reports the stored booking and whether the confirmation went out.
// A failed confirmation never undoes the booking.
type CreateResult struct {
	Booking          *Booking
	ConfirmationSent bool
}

// UpdateRequest is a staff patch. Nil fields are left unchanged; an empty
// remark or meeting link clears it.
type UpdateRequest struct {
	Status      *string
	Remark      *string
	MeetingLink *string
}

type Availability struct {
	Date  schedule.Date
	Slots []schedule.Slot
}

// Service defines business logic for appointment bookings.
type Service interface {
	AvailableSlots(ctx context.Context, date string) (*Availability, error)
	IsAvailable(ctx context.Context, slot time.Time) (bool, error)
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, actor auth.Principal) (*Booking, error)
	CancelWithToken(ctx context.Context, id, token string) (*Booking, error)
	CalendarExport(ctx context.Context, id string, actor auth.Principal, token string) (string, error)
	Policy() *schedule.Policy
	Converter() *schedule.Converter
}

type Option func(*service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo     Repository
	gen      *schedule.Generator
	messages *Messages
	sender   notify.Sender
	cfg      Config
	now      func() time.Time
}

func NewService(repo Repository, gen *schedule.Generator, messages *Messages, sender notify.Sender, cfg Config, opts ...Option) Service {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = "US"
	}
	s := &service{
		repo:     repo,
		gen:      gen,
		messages: messages,
		sender:   sender,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Policy() *schedule.Policy {
	return s.gen.Policy()
}

func (s *service) Converter() *schedule.Converter {
	return s.gen.Converter()
}

func (s *service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *service) AvailableSlots(ctx context.Context, date string) (*Availability, error) {
	d, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	slots, err := s.availableOn(ctx, d)
	if err != nil {
		return nil, err
	}
	return &Availability{Date: d, Slots: slots}, nil
}

func (s *service) availableOn(ctx context.Context, date schedule.Date) ([]schedule.Slot, error) {
	slots := schedule.NotBefore(s.gen.Generate(date), s.now())

	from, to, ok := schedule.QueryRange(schedule.Instants(slots), s.cfg.Buffer)
	if !ok {
		return slots, nil
	}
	existing, err := s.occupantsBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return schedule.FilterAvailable(slots, existing, s.cfg.Buffer), nil
}

func (s *service) occupantsBetween(ctx context.Context, from, to time.Time) ([]schedule.Occupant, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	bookings, _, err := s.repo.Query(storeCtx, Filter{StatusIn: activeStatuses, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Occupant, len(bookings))
	for i, b := range bookings {
		out[i] = b
	}
	return out, nil
}

func (s *service) IsAvailable(ctx context.Context, slot time.Time) (bool, error) {
	from, to, _ := schedule.QueryRange([]time.Time{slot}, s.cfg.Buffer)
	existing, err := s.occupantsBetween(ctx, from, to)
	if err != nil {
		return false, err
	}
	return !schedule.Conflicts(slot, existing, s.cfg.Buffer), nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	b, err := s.newBooking(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !s.gen.Offers(b.SlotStartUTC) {
		return nil, ErrSlotNotOffered
	}
	if b.SlotStartUTC.Before(now) {
		return nil, ErrSlotInPast
	}

	// A client that is already gone gets nothing written. Past this point the
	// insert is detached from the request so it cannot commit unreported.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(context.WithoutCancel(ctx))
	err = s.repo.CreateIfAvailable(storeCtx, b, s.cfg.Buffer)
	cancel()
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			return nil, s.conflict(ctx, b.SlotStartUTC)
		}
		return nil, err
	}

	logger.FromContext(ctx).InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"slot_start_utc", b.SlotStartUTC,
		"medium", b.Medium,
	)

	sent := s.deliver(ctx, s.messages.Confirmation(b, now), "confirmation", b.ID)
	return &CreateResult{Booking: b, ConfirmationSent: sent}, nil
}

// conflict reports a lost slot together with what is still open that day.
func (s *service) conflict(ctx context.Context, slot time.Time) error {
	date, _ := s.gen.Converter().ToAuthorityLocal(slot)
	slots, err := s.availableOn(ctx, date)
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "refresh availability after conflict failed", "error", err)
		slots = []schedule.Slot{}
	}
	return ErrSlotConflict.WithDetails(map[string]any{
		"date":            date.String(),
		"available_slots": schedule.LocalLabels(slots),
	})
}

func (s *service) newBooking(req CreateRequest) (*Booking, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidRequester
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone, s.cfg.PhoneRegion)
	if err != nil {
		return nil, err
	}
	medium, err := ParseMedium(req.Medium)
	if err != nil {
		return nil, err
	}
	slot, err := s.parseSlotLocal(req.SlotLocal)
	if err != nil {
		return nil, err
	}

	return &Booking{
		FullName:     name,
		Phone:        phone,
		Email:        email,
		SlotStartUTC: slot,
		Medium:       medium,
		Status:       StatusPending,
		Remark:       normalizeOptional(req.Remark),
		CancelToken:  uuid.NewString(),
	}, nil
}

func (s *service) parseSlotLocal(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) != len(schedule.DateLayout)+1+len(schedule.ClockLayout) || (v[10] != 'T' && v[10] != ' ') {
		return time.Time{}, schedule.ErrInvalidTimeFormat
	}
	return s.gen.Converter().ParseLocal(v[:10], v[11:])
}

func normalizeEmail(v string) (string, error) {
	v = strings.TrimSpace(v)
	if err := requesterRules.Var(v, "required,email,max=254"); err != nil {
		return "", ErrInvalidRequester
	}
	return strings.ToLower(v), nil
}

// normalizePhone stores numbers in E.164 so staff can dial them from anywhere.
func normalizePhone(v, region string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(v, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.GetByID(storeCtx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.Query(storeCtx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actor auth.Principal) (*Booking, error) {
	if !actor.Authenticated() {
		return nil, ErrPermissionDenied
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.Remark != nil {
		next.Remark = normalizeOptional(req.Remark)
	}
	if req.MeetingLink != nil {
		next.MeetingLink = normalizeOptional(req.MeetingLink)
	}
	if req.Status != nil {
		to, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if to != current.Status && !AllowedFor(actor.Role, to) {
			return nil, ErrPermissionDenied
		}
		if err := Transition(&next, to, s.now()); err != nil {
			return nil, err
		}
	}

	if err := s.save(ctx, &next, current.Status); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).InfoContext(ctx, "booking updated",
		"booking_id", next.ID,
		"from", current.Status,
		"to", next.Status,
		"actor", actor.UserID,
	)

	if next.Status == StatusCancelled && current.Status != StatusCancelled {
		s.deliver(ctx, s.messages.Cancellation(&next, s.now()), "cancellation", next.ID)
	}
	return &next, nil
}

func (s *service) save(ctx context.Context, b *Booking, from Status) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.repo.Update(storeCtx, b, from)
}

func (s *service) CancelWithToken(ctx context.Context, id, token string) (*Booking, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tokenMatches(current, token) {
		return nil, ErrInvalidToken
	}
	if current.Status == StatusCancelled {
		return current, nil
	}

	next := *current
	if err := Transition(&next, StatusCancelled, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, &next, current.Status); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).InfoContext(ctx, "booking cancelled by requester", "booking_id", next.ID)
	s.deliver(ctx, s.messages.Cancellation(&next, s.now()), "cancellation", next.ID)
	return &next, nil
}

func (s *service) CalendarExport(ctx context.Context, id string, actor auth.Principal, token string) (string, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if !actor.Authenticated() && !tokenMatches(b, token) {
		return "", ErrInvalidToken
	}
	return s.messages.Export(b, s.now()), nil
}

func tokenMatches(b *Booking, token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(b.CancelToken)) == 1
}

// deliver sends n after the booking change is durable. The send outlives the
// caller's cancellation but is bounded by NotifyTimeout; failures are logged only.
func (s *service) deliver(ctx context.Context, n notify.Notification, kind, bookingID string) bool {
	sendCtx := context.WithoutCancel(ctx)
	if s.cfg.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, s.cfg.NotifyTimeout)
		defer cancel()
	}

	if err := s.sender.Send(sendCtx, n); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "notification failed",
			"kind", kind,
			"booking_id", bookingID,
			"error", err,
		)
		return false
	}
	return true
}

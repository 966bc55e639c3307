package appointment

import (
	"net/http"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "booking not found")
	ErrSlotConflict      = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidTransition = apperror.New(http.StatusConflict, "invalid status transition")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrInvalidMedium     = apperror.New(http.StatusBadRequest, "invalid meeting medium")
	ErrInvalidRequester  = apperror.New(http.StatusBadRequest, "full name and a valid email are required")
	ErrInvalidPhone      = apperror.New(http.StatusBadRequest, "invalid phone number")
	ErrSlotNotOffered    = apperror.New(http.StatusBadRequest, "requested time is not an offered slot")
	ErrSlotInPast        = apperror.New(http.StatusBadRequest, "cannot book a slot in the past")
	ErrInvalidToken      = apperror.New(http.StatusForbidden, "invalid cancel token")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "permission denied")
	ErrStoreUnavailable  = apperror.New(http.StatusServiceUnavailable, "booking store unavailable")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Medium string

const (
	MediumInPerson Medium = "in-person"
	MediumOnline   Medium = "online"
	MediumPhone    Medium = "phone"
)

func ParseMedium(s string) (Medium, error) {
	switch m := Medium(s); m {
	case MediumInPerson, MediumOnline, MediumPhone:
		return m, nil
	default:
		return "", ErrInvalidMedium
	}
}

// Booking is a reserved appointment slot. SlotStartUTC is the only source of truth for time.
type Booking struct {
	ID                 string
	FullName           string
	Phone              string
	Email              string
	SlotStartUTC       time.Time
	Medium             Medium
	Status             Status
	Remark             *string
	MeetingLink        *string
	CancelToken        string
	ReminderSent       bool
	LastReminderSentAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SlotStart and Active let bookings take part in the buffer rule.
func (b *Booking) SlotStart() time.Time { return b.SlotStartUTC }
func (b *Booking) Active() bool         { return b.Status != StatusCancelled }

// Filter narrows Query results. Zero values mean "no constraint".
// The slot range is half-open: From <= slot_start_utc < To.
type Filter struct {
	StatusIn     []Status
	From         *time.Time
	To           *time.Time
	Email        string
	ReminderSent *bool
	Page         int
	PageSize     int
	SortOrder    string
}

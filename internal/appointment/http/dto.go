package http

import (
	"errors"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/pkg/request"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
)

const localDateTimeLayout = "2006-01-02T15:04"

type AvailabilityRequest struct {
	Date string `form:"date"`
}

type AvailabilityResponse struct {
	Date     string   `json:"date"`
	Timezone string   `json:"timezone"`
	Slots    []string `json:"slots"`
}

type PolicyResponse struct {
	Timezone        string              `json:"timezone"`
	SlotStepMinutes int                 `json:"slot_step_minutes"`
	Days            map[string][]string `json:"days"`
}

func NewPolicyResponse(p *schedule.Policy, conv *schedule.Converter) PolicyResponse {
	days := make(map[string][]string)
	for _, d := range p.Days() {
		windows := p.WindowsFor(d)
		out := make([]string, len(windows))
		for i, w := range windows {
			out[i] = w.String()
		}
		days[d.String()] = out
	}
	return PolicyResponse{
		Timezone:        conv.Location().String(),
		SlotStepMinutes: p.StepMinutes(),
		Days:            days,
	}
}

// CreateBookingRequest is the public booking form.
type CreateBookingRequest struct {
	FullName          string  `json:"full_name" binding:"required,max=200"`
	Email             string  `json:"email" binding:"required,email"`
	PhoneNumber       string  `json:"phone_number" binding:"required"`
	SlotLocalDateTime string  `json:"slot_local_datetime" binding:"required,local_datetime"`
	Medium            string  `json:"medium" binding:"required,medium"`
	Remark            *string `json:"remark" binding:"omitempty,max=2000"`
}

type CreateBookingResponse struct {
	Booking          BookingResponse `json:"booking"`
	CancelToken      string          `json:"cancel_token"`
	ConfirmationSent bool            `json:"confirmation_sent"`
}

type BookingResponse struct {
	ID                 string     `json:"id"`
	FullName           string     `json:"full_name"`
	PhoneNumber        string     `json:"phone_number"`
	Email              string     `json:"email"`
	SlotStartUTC       time.Time  `json:"slot_start_utc"`
	SlotLocal          string     `json:"slot_local"`
	Medium             string     `json:"medium"`
	Status             string     `json:"status"`
	Remark             *string    `json:"remark"`
	MeetingLink        *string    `json:"meeting_link"`
	ReminderSent       bool       `json:"reminder_sent"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewBookingResponse(b *appointment.Booking, loc *time.Location) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		FullName:           b.FullName,
		PhoneNumber:        b.Phone,
		Email:              b.Email,
		SlotStartUTC:       b.SlotStartUTC,
		SlotLocal:          b.SlotStartUTC.In(loc).Format(localDateTimeLayout),
		Medium:             string(b.Medium),
		Status:             string(b.Status),
		Remark:             b.Remark,
		MeetingLink:        b.MeetingLink,
		ReminderSent:       b.ReminderSent,
		LastReminderSentAt: b.LastReminderSentAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

// ListBookingsRequest filters the staff booking list. From and To are
// authority-local dates, both inclusive.
type ListBookingsRequest struct {
	request.ListParams
	Status []string `form:"status" binding:"omitempty,dive,booking_status"`
	From   string   `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string   `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Email  string   `form:"email" binding:"omitempty,email"`
}

// UpdateBookingRequest defines fields allowed to be updated via PATCH /bookings/:id.
// An empty remark or meeting link clears it.
type UpdateBookingRequest struct {
	Status      *string `json:"status" binding:"omitempty,booking_status"`
	Remark      *string `json:"remark" binding:"omitempty,max=2000"`
	MeetingLink *string `json:"meeting_link" binding:"omitempty,max=500"`
}

// Validate performs custom validation for UpdateBookingRequest.
func (r *UpdateBookingRequest) Validate() error {
	if r.Status == nil && r.Remark == nil && r.MeetingLink == nil {
		return errors.New("at least one of status, remark or meeting_link is required")
	}
	return nil
}

type CancelBookingRequest struct {
	Token string `json:"token" binding:"required"`
}

type CalendarRequest struct {
	Token string `form:"token"`
}

type RunRemindersRequest struct {
	LookaheadMinutes int `json:"lookahead_minutes" binding:"omitempty,min=1,max=10080"`
}

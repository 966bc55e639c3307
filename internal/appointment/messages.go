package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/calendar"
	"github.com/gracefellowship/church-admin-backend/internal/notify"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
)

const localTimeLayout = "Monday, January 2, 2006 at 3:04 PM MST"

// MessageConfig describes how bookings are presented to requesters.
type MessageConfig struct {
	Title           string
	OrganizerEmail  string
	Location        string
	DurationMinutes int
}

// Messages renders notifications and calendar objects for bookings.
type Messages struct {
	conv *schedule.Converter
	cfg  MessageConfig
}

func NewMessages(conv *schedule.Converter, cfg MessageConfig) *Messages {
	if cfg.Title == "" {
		cfg.Title = "Pastoral appointment"
	}
	if cfg.DurationMinutes <= 0 {
		cfg.DurationMinutes = calendar.DefaultDurationMinutes
	}
	return &Messages{conv: conv, cfg: cfg}
}

// LocalTime formats the slot in the authority timezone for people to read.
func (m *Messages) LocalTime(b *Booking) string {
	return b.SlotStartUTC.In(m.conv.Location()).Format(localTimeLayout)
}

// Event maps a booking onto a calendar event.
func (m *Messages) Event(b *Booking, method calendar.Method) calendar.Event {
	e := calendar.Event{
		UID:             b.ID + "@appointments",
		Title:           m.cfg.Title,
		Start:           b.SlotStartUTC,
		DurationMinutes: m.cfg.DurationMinutes,
		OrganizerEmail:  m.cfg.OrganizerEmail,
		AttendeeEmail:   b.Email,
		Method:          method,
		Status:          calendarStatus(b.Status),
	}
	if b.Remark != nil {
		e.Description = *b.Remark
	}

	switch b.Medium {
	case MediumOnline:
		if b.MeetingLink != nil {
			e.Location = *b.MeetingLink
		}
	case MediumPhone:
		e.Location = "Phone call to " + b.Phone
	default:
		e.Location = m.cfg.Location
	}

	// A cancellation supersedes the original invite.
	if b.Status == StatusCancelled {
		e.Sequence = 1
	}
	return e
}

// CalendarObject renders b as an iCalendar document.
func (m *Messages) CalendarObject(b *Booking, method calendar.Method, stamp time.Time) string {
	return calendar.Build(m.Event(b, method), stamp)
}

// Export picks the method a downloaded calendar file should carry for b.
func (m *Messages) Export(b *Booking, stamp time.Time) string {
	method := calendar.MethodPublish
	if b.Status == StatusCancelled {
		method = calendar.MethodCancel
	}
	return m.CalendarObject(b, method, stamp)
}

func calendarStatus(s Status) string {
	switch s {
	case StatusConfirmed, StatusCompleted:
		return calendar.StatusConfirmed
	case StatusCancelled:
		return calendar.StatusCancelled
	default:
		return calendar.StatusTentative
	}
}

func (m *Messages) Confirmation(b *Booking, stamp time.Time) notify.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", b.FullName)
	fmt.Fprintf(&body, "We received your appointment request for %s (%s).\n", m.LocalTime(b), b.Medium)
	body.WriteString("A member of our staff will confirm it shortly.\n\n")
	fmt.Fprintf(&body, "Booking reference: %s\n", b.ID)
	fmt.Fprintf(&body, "To cancel, use this code with your booking reference: %s\n", b.CancelToken)

	return notify.Notification{
		To:      b.Email,
		Subject: "Appointment request received: " + m.LocalTime(b),
		Body:    body.String(),
		Attachments: []notify.Attachment{{
			Name:        "invite.ics",
			ContentType: `text/calendar; charset=utf-8; method=REQUEST`,
			Data:        []byte(m.CalendarObject(b, calendar.MethodRequest, stamp)),
		}},
	}
}

func (m *Messages) Reminder(b *Booking) notify.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", b.FullName)
	fmt.Fprintf(&body, "This is a reminder of your appointment on %s (%s).\n", m.LocalTime(b), b.Medium)
	if b.MeetingLink != nil && *b.MeetingLink != "" {
		fmt.Fprintf(&body, "Meeting link: %s\n", *b.MeetingLink)
	}
	fmt.Fprintf(&body, "\nBooking reference: %s\n", b.ID)

	return notify.Notification{
		To:      b.Email,
		Subject: "Appointment reminder: " + m.LocalTime(b),
		Body:    body.String(),
	}
}

func (m *Messages) Cancellation(b *Booking, stamp time.Time) notify.Notification {
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", b.FullName)
	fmt.Fprintf(&body, "Your appointment on %s has been cancelled.\n", m.LocalTime(b))

	return notify.Notification{
		To:      b.Email,
		Subject: "Appointment cancelled: " + m.LocalTime(b),
		Body:    body.String(),
		Attachments: []notify.Attachment{{
			Name:        "cancel.ics",
			ContentType: `text/calendar; charset=utf-8; method=CANCEL`,
			Data:        []byte(m.CalendarObject(b, calendar.MethodCancel, stamp)),
		}},
	}
}

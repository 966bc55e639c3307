package calendar

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const (
	DefaultDurationMinutes = 30

	prodID = "-//Grace Fellowship//Church Admin//EN"
)

type Method string

const (
	MethodPublish Method = "PUBLISH"
	MethodRequest Method = "REQUEST"
	MethodCancel  Method = "CANCEL"
)

// Status values for VEVENT STATUS.
const (
	StatusTentative = "TENTATIVE"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Event is everything needed to render one calendar object.
type Event struct {
	UID             string // generated when empty
	Title           string
	Description     string
	Location        string
	Start           time.Time
	DurationMinutes int // DefaultDurationMinutes when zero
	OrganizerEmail  string
	AttendeeEmail   string
	Status          string
	Method          Method
	Sequence        int
}

var rsvpRequested = &ics.KeyValues{Key: string(ics.ParameterRsvp), Value: []string{"TRUE"}}

// Build renders e as an iCalendar (RFC 5545) object with CRLF line endings.
// stamp is the creation timestamp written to DTSTAMP.
func Build(e Event, stamp time.Time) string {
	uid := e.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	duration := e.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	method := e.Method
	if method == "" {
		method = MethodPublish
	}
	status := e.Status
	if status == "" {
		status = StatusConfirmed
	}

	start := e.Start.UTC()

	cal := ics.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.Method(method))

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(start)
	ev.SetEndAt(start.Add(time.Duration(duration) * time.Minute))
	ev.SetSummary(normalizeNewlines(e.Title))
	if e.Description != "" {
		ev.SetDescription(normalizeNewlines(e.Description))
	}
	if e.Location != "" {
		ev.SetLocation(normalizeNewlines(e.Location))
	}
	ev.SetStatus(ics.ObjectStatus(status))
	ev.SetSequence(e.Sequence)
	if e.OrganizerEmail != "" {
		ev.SetOrganizer(e.OrganizerEmail)
	}
	if e.AttendeeEmail != "" {
		ev.AddAttendee(e.AttendeeEmail, ics.ParticipationRoleReqParticipant, rsvpRequested)
	}

	return cal.Serialize(ics.WithNewLineWindows)
}

// Escape applies the TEXT value escaping rule: backslash, newline, comma and semicolon.
func Escape(s string) string {
	return ics.ToText(normalizeNewlines(s))
}

// ToText only knows LF; CR and CRLF would otherwise leak raw into a content line.
var newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(s string) string {
	return newlineNormalizer.Replace(s)
}

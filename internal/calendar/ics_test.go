package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func lines(ics string) []string {
	return strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n")
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a,b", `a\,b`},
		{"a;b", `a\;b`},
		{`back\slash`, `back\\slash`},
		{"two\nlines", `two\nlines`},
		{"crlf\r\nline", `crlf\nline`},
		{`all\,;` + "\n", `all\\\,\;\n`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), tt.in)
	}
}

func TestBuild_RequiredFields(t *testing.T) {
	ics := Build(Event{
		UID:            "booking-1@church",
		Title:          "Pastoral appointment",
		Description:    "Please bring notes, and arrive early; thanks",
		Location:       "Main office",
		Start:          time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC),
		OrganizerEmail: "pastor@church.org",
		AttendeeEmail:  "jane@example.com",
		Status:         StatusTentative,
		Method:         MethodRequest,
	}, stamp)

	got := lines(ics)
	assert.Equal(t, "BEGIN:VCALENDAR", got[0])
	assert.Equal(t, "END:VCALENDAR", got[len(got)-1])
	assert.Contains(t, got, "METHOD:REQUEST")
	assert.Contains(t, got, "UID:booking-1@church")
	assert.Contains(t, got, "DTSTAMP:20260301T120000Z")
	assert.Contains(t, got, "DTSTART:20260316T190000Z")
	assert.Contains(t, got, "DTEND:20260316T193000Z", "default duration is 30 minutes")
	assert.Contains(t, got, "SUMMARY:Pastoral appointment")
	assert.Contains(t, got, `DESCRIPTION:Please bring notes\, and arrive early\; thanks`)
	assert.Contains(t, got, "STATUS:TENTATIVE")
	assert.Contains(t, got, "ORGANIZER:mailto:pastor@church.org")
	assert.Contains(t, got, "ATTENDEE;ROLE=REQ-PARTICIPANT;RSVP=TRUE:mailto:jane@example.com")
}

func TestBuild_IsDeterministic(t *testing.T) {
	e := Event{UID: "x", Title: "t", Start: time.Date(2026, 3, 16, 19, 0, 0, 0, time.UTC), DurationMinutes: 45}
	assert.Equal(t, Build(e, stamp), Build(e, stamp))
	assert.Contains(t, lines(Build(e, stamp)), "DTEND:20260316T194500Z")
}

func TestBuild_GeneratesUIDWhenMissing(t *testing.T) {
	a := Build(Event{Title: "t", Start: stamp}, stamp)
	b := Build(Event{Title: "t", Start: stamp}, stamp)

	uidOf := func(ics string) string {
		for _, l := range lines(ics) {
			if strings.HasPrefix(l, "UID:") {
				return l
			}
		}
		return ""
	}
	require.NotEmpty(t, uidOf(a))
	assert.NotEqual(t, uidOf(a), uidOf(b))
}

func TestBuild_Cancellation(t *testing.T) {
	ics := Build(Event{UID: "x", Title: "t", Start: stamp, Status: StatusCancelled, Method: MethodCancel, Sequence: 1}, stamp)

	got := lines(ics)
	assert.Contains(t, got, "METHOD:CANCEL")
	assert.Contains(t, got, "STATUS:CANCELLED")
	assert.Contains(t, got, "SEQUENCE:1")
}

func TestBuild_FoldsLongLines(t *testing.T) {
	long := strings.Repeat("é", 100)
	ics := Build(Event{UID: "x", Title: "t", Description: long, Start: stamp}, stamp)

	for _, l := range lines(ics) {
		assert.LessOrEqual(t, len(l), 75, l)
	}
	unfolded := strings.ReplaceAll(ics, "\r\n ", "")
	assert.Contains(t, unfolded, "DESCRIPTION:"+long)
}

func TestBuild_EscapesTextValues(t *testing.T) {
	ics := Build(Event{
		UID:         "x",
		Title:       "Visit; family",
		Description: "line one\r\nline two, with \\ slash",
		Location:    "Hall A, room 2",
		Start:       stamp,
	}, stamp)

	got := lines(ics)
	assert.Contains(t, got, `SUMMARY:Visit\; family`)
	assert.Contains(t, got, `DESCRIPTION:line one\nline two\, with \\ slash`)
	assert.Contains(t, got, `LOCATION:Hall A\, room 2`)
	assert.NotContains(t, ics, "\r\r")
}

func TestBuild_FoldedLinesUnfoldToOriginal(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("pastoral care visit ", 12))
	ics := Build(Event{UID: "x", Title: "t", Description: long, Start: stamp}, stamp)

	for _, l := range lines(ics) {
		assert.LessOrEqual(t, len(l), 75, l)
	}
	assert.Contains(t, strings.ReplaceAll(ics, "\r\n ", ""), "DESCRIPTION:"+long+"\r\n")
}

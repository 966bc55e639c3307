package schedule

import (
	"fmt"
	"net/http"
	"regexp"
	"time"
	_ "time/tzdata"

	"github.com/gracefellowship/church-admin-backend/internal/pkg/apperror"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidDateFormat = apperror.New(http.StatusBadRequest, "date must be in YYYY-MM-DD format")
	ErrInvalidTimeFormat = apperror.New(http.StatusBadRequest, "time must be in 24-hour HH:mm format")
	ErrNonexistentTime   = apperror.New(http.StatusBadRequest, "local time does not exist on that date")
	ErrInvalidTimezone   = apperror.New(http.StatusInternalServerError, "invalid authority timezone")
)

// time.Parse accepts single-digit fields for some layouts, so shape is checked first.
var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Date is an authority-local calendar date with no time-of-day and no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday is zone independent for a civil date.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// WallClock is a local time-of-day with minute precision.
// Fold is 1 only for the second occurrence of a repeated fall-back wall clock.
type WallClock struct {
	Hour   int
	Minute int
	Fold   int
}

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// Minutes returns the number of minutes since local midnight.
func (w WallClock) Minutes() int {
	return w.Hour*60 + w.Minute
}

func wallClockFromMinutes(m int) WallClock {
	return WallClock{Hour: m / 60, Minute: m % 60}
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	if !datePattern.MatchString(s) {
		return Date{}, ErrInvalidDateFormat
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDateFormat
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// ParseWallClock parses a strict 24-hour HH:mm string.
func ParseWallClock(s string) (WallClock, error) {
	if !clockPattern.MatchString(s) {
		return WallClock{}, ErrInvalidTimeFormat
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return WallClock{}, ErrInvalidTimeFormat
	}
	return WallClock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Converter translates between the authority timezone wall clock and UTC instants.
// Conversions are always anchored to a calendar date so DST offsets are resolved per day.
type Converter struct {
	loc *time.Location
}

// NewConverter loads the named IANA zone.
func NewConverter(zone string) (*Converter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, apperror.Wrap(err, ErrInvalidTimezone.Code, fmt.Sprintf("invalid authority timezone %q", zone))
	}
	return &Converter{loc: loc}, nil
}

// NewConverterForLocation wraps an already loaded location.
func NewConverterForLocation(loc *time.Location) *Converter {
	return &Converter{loc: loc}
}

func (c *Converter) Location() *time.Location {
	return c.loc
}

// ToAuthorityLocal returns the authority-local date and wall clock of an instant.
func (c *Converter) ToAuthorityLocal(instant time.Time) (Date, WallClock) {
	local := instant.In(c.loc)
	clock := WallClock{Hour: local.Hour(), Minute: local.Minute()}
	if sameWallClock(instant.Add(-time.Hour).In(c.loc), local) {
		clock.Fold = 1
	}
	return Date{Year: local.Year(), Month: local.Month(), Day: local.Day()}, clock
}

// FromAuthorityLocal returns the UTC instant of the wall clock on the given date.
// The boolean is false when the wall clock does not exist on that date (spring-forward gap).
// Ambiguous fall-back times resolve to the first occurrence unless clock.Fold is 1.
func (c *Converter) FromAuthorityLocal(date Date, clock WallClock) (time.Time, bool) {
	t := time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, c.loc)
	if t.Hour() != clock.Hour || t.Minute() != clock.Minute || t.Day() != date.Day {
		return t.UTC(), false
	}

	first, second := t, t
	if earlier := t.Add(-time.Hour).In(c.loc); sameWallClock(earlier, t) {
		first = earlier
	}
	if later := t.Add(time.Hour).In(c.loc); sameWallClock(later, t) {
		second = later
	}
	if clock.Fold == 1 {
		return second.UTC(), true
	}
	return first.UTC(), true
}

// ParseLocal converts string inputs, validating both formats.
func (c *Converter) ParseLocal(date, clock string) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	w, err := ParseWallClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	t, ok := c.FromAuthorityLocal(d, w)
	if !ok {
		return time.Time{}, ErrNonexistentTime
	}
	return t, nil
}

// FormatClock renders an instant as authority-local HH:mm.
func (c *Converter) FormatClock(instant time.Time) string {
	return instant.In(c.loc).Format(ClockLayout)
}

// DayBounds returns the UTC instants of local midnight on date and the following date.
func (c *Converter) DayBounds(date Date) (time.Time, time.Time) {
	start := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, c.loc)
	end := time.Date(date.Year, date.Month, date.Day+1, 0, 0, 0, 0, c.loc)
	return start.UTC(), end.UTC()
}

func sameWallClock(a, b time.Time) bool {
	return a.Day() == b.Day() && a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

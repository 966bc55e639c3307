package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidPolicy = errors.New("invalid availability policy")

// Window is a bookable range of authority-local time on one day of the week.
// Slots start at Start and every step after it while strictly before End.
type Window struct {
	Start WallClock
	End   WallClock
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Policy is the weekly availability schedule. It is immutable after construction.
type Policy struct {
	windows     map[time.Weekday][]Window
	stepMinutes int
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// NewPolicy validates and copies the given windows.
func NewPolicy(windows map[time.Weekday][]Window, stepMinutes int) (*Policy, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot step must be positive, got %d", ErrInvalidPolicy, stepMinutes)
	}

	copied := make(map[time.Weekday][]Window, len(windows))
	for day, list := range windows {
		if day < time.Sunday || day > time.Saturday {
			return nil, fmt.Errorf("%w: day of week %d out of range", ErrInvalidPolicy, day)
		}
		for _, w := range list {
			if w.Start.Minutes() >= w.End.Minutes() {
				return nil, fmt.Errorf("%w: window %s on %s must start before it ends", ErrInvalidPolicy, w, day)
			}
		}
		sorted := append([]Window(nil), list...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Start.Minutes() < sorted[j].Start.Minutes()
		})
		copied[day] = sorted
	}

	return &Policy{windows: copied, stepMinutes: stepMinutes}, nil
}

// ParsePolicy reads the compact form used in configuration:
//
//	mon=14:00-17:00;wed=09:00-12:00,13:00-15:00
func ParsePolicy(spec string, stepMinutes int) (*Policy, error) {
	windows := make(map[time.Weekday][]Window)

	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, ranges, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: expected day=ranges, got %q", ErrInvalidPolicy, part)
		}
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalidPolicy, name)
		}

		for _, r := range strings.Split(ranges, ",") {
			startStr, endStr, ok := strings.Cut(strings.TrimSpace(r), "-")
			if !ok {
				return nil, fmt.Errorf("%w: expected HH:mm-HH:mm, got %q", ErrInvalidPolicy, r)
			}
			start, err := ParseWallClock(strings.TrimSpace(startStr))
			if err != nil {
				return nil, fmt.Errorf("%w: window start %q: %v", ErrInvalidPolicy, startStr, err)
			}
			end, err := ParseWallClock(strings.TrimSpace(endStr))
			if err != nil {
				return nil, fmt.Errorf("%w: window end %q: %v", ErrInvalidPolicy, endStr, err)
			}
			windows[day] = append(windows[day], Window{Start: start, End: end})
		}
	}

	return NewPolicy(windows, stepMinutes)
}

// WindowsFor returns the windows configured for a day, possibly none.
func (p *Policy) WindowsFor(day time.Weekday) []Window {
	return append([]Window(nil), p.windows[day]...)
}

func (p *Policy) StepMinutes() int {
	return p.stepMinutes
}

// Days lists configured days in week order.
func (p *Policy) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(p.windows))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if len(p.windows[d]) > 0 {
			days = append(days, d)
		}
	}
	return days
}

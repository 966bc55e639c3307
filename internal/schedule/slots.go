package schedule

import (
	"sort"
	"time"
)

// Slot is a candidate bookable instant. It is computed on demand and never stored.
type Slot struct {
	StartUTC time.Time
	Local    string // authority-local HH:mm
}

// Generator expands a Policy into concrete instants for one authority-local date.
type Generator struct {
	policy *Policy
	conv   *Converter
}

func NewGenerator(policy *Policy, conv *Converter) *Generator {
	return &Generator{policy: policy, conv: conv}
}

func (g *Generator) Policy() *Policy {
	return g.policy
}

func (g *Generator) Converter() *Converter {
	return g.conv
}

// Generate returns the slots of date in strictly ascending UTC order with no duplicate instants.
// A day with no configured windows yields an empty result.
func (g *Generator) Generate(date Date) []Slot {
	windows := g.policy.WindowsFor(date.Weekday())
	if len(windows) == 0 {
		return []Slot{}
	}

	step := g.policy.StepMinutes()
	seen := make(map[int64]struct{})
	var slots []Slot

	for _, w := range windows {
		for m := w.Start.Minutes(); m < w.End.Minutes(); m += step {
			clock := wallClockFromMinutes(m)
			// Offsets are resolved per slot so a window crossing a DST change stays correct.
			instant, ok := g.conv.FromAuthorityLocal(date, clock)
			if !ok {
				continue
			}
			key := instant.Unix()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			slots = append(slots, Slot{StartUTC: instant, Local: clock.String()})
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartUTC.Before(slots[j].StartUTC)
	})
	if slots == nil {
		return []Slot{}
	}
	return slots
}

// GenerateFor parses a YYYY-MM-DD date before generating.
func (g *Generator) GenerateFor(date string) (Date, []Slot, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Date{}, nil, err
	}
	return d, g.Generate(d), nil
}

// Offers reports whether instant is one of the slots the policy produces on its local date.
func (g *Generator) Offers(instant time.Time) bool {
	date, _ := g.conv.ToAuthorityLocal(instant)
	for _, s := range g.Generate(date) {
		if s.StartUTC.Equal(instant) {
			return true
		}
	}
	return false
}

// NotBefore drops slots starting before now.
func NotBefore(slots []Slot, now time.Time) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.StartUTC.Before(now) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Instants extracts the UTC starts of slots.
func Instants(slots []Slot) []time.Time {
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.StartUTC
	}
	return out
}

// LocalLabels extracts the HH:mm display keys of slots.
func LocalLabels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Local
	}
	return out
}

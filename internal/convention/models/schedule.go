package models

import (
	"time"

	dErrors "immersion/pkg/domain-errors"
)

// TimeSlot is one contiguous period of presence at the establishment.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Hours returns the slot duration in hours.
func (s TimeSlot) Hours() float64 {
	return s.End.Sub(s.Start).Hours()
}

// Schedule is the structured work-hours description of a convention.
//
// Invariants:
//   - at least one slot
//   - every slot ends after it starts
//   - slots are sorted and non-overlapping
//   - every slot falls within the convention date range
//
// The total hours computed here are the single source of truth for the
// duration reported in partner broadcast payloads and for the assessment
// worked-hours arithmetic.
type Schedule struct {
	Slots []TimeSlot `json:"slots"`
}

// TotalHours sums the duration of every slot.
func (s Schedule) TotalHours() float64 {
	var total float64
	for _, slot := range s.Slots {
		total += slot.Hours()
	}
	return total
}

// Validate checks the schedule invariants against the convention date range.
func (s Schedule) Validate(dateStart, dateEnd time.Time) error {
	if len(s.Slots) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "schedule must contain at least one time slot")
	}
	rangeEnd := dateEnd.AddDate(0, 0, 1) // dateEnd is inclusive
	for i, slot := range s.Slots {
		if !slot.End.After(slot.Start) {
			return dErrors.New(dErrors.CodeInvariantViolation, "schedule slot must end after it starts")
		}
		if slot.Start.Before(dateStart) || slot.End.After(rangeEnd) {
			return dErrors.New(dErrors.CodeInvariantViolation, "schedule slot falls outside the convention date range")
		}
		if i > 0 && slot.Start.Before(s.Slots[i-1].End) {
			return dErrors.New(dErrors.CodeInvariantViolation, "schedule slots must be sorted and non-overlapping")
		}
	}
	return nil
}

// Clone returns a deep copy so stores can hand out aliasing-safe values.
func (s Schedule) Clone() Schedule {
	out := Schedule{Slots: make([]TimeSlot, len(s.Slots))}
	copy(out.Slots, s.Slots)
	return out
}

package scheduling

import "time"

// Interval is a provider's occupied time slot, as a half-open interval
// [Start, Start+Duration).
type Interval struct {
	AppointmentID   string
	Start           time.Time
	DurationMinutes int
}

func (iv Interval) End() time.Time {
	return iv.Start.Add(time.Duration(iv.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two half-open intervals conflict. Intervals that
// only touch at a boundary (end == start) do not conflict.
func Overlaps(aStart time.Time, aMinutes int, bStart time.Time, bMinutes int) bool {
	aEnd := aStart.Add(time.Duration(aMinutes) * time.Minute)
	bEnd := bStart.Add(time.Duration(bMinutes) * time.Minute)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// IsAvailable reports whether the slot [start, start+durationMinutes) is free
// given a snapshot of the provider's occupied intervals. The interval with
// excludeID is ignored, which lets a reschedule check availability against
// everything but the appointment being moved. The snapshot is expected to
// contain only occupying appointments (not cancelled, not no-show).
func IsAvailable(occupied []Interval, start time.Time, durationMinutes int, excludeID string) bool {
	for _, iv := range occupied {
		if excludeID != "" && iv.AppointmentID == excludeID {
			continue
		}
		if Overlaps(start, durationMinutes, iv.Start, iv.DurationMinutes) {
			return false
		}
	}
	return true
}

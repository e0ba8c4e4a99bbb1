package scheduling

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		aStart   time.Time
		aMinutes int
		bStart   time.Time
		bMinutes int
		want     bool
	}{
		{"identical intervals", at(10, 0), 60, at(10, 0), 60, true},
		{"contained interval", at(10, 0), 60, at(10, 15), 15, true},
		{"partial overlap front", at(10, 0), 60, at(9, 30), 60, true},
		{"partial overlap back", at(10, 0), 60, at(10, 30), 60, true},
		{"touching boundary, b after a", at(10, 0), 60, at(11, 0), 30, false},
		{"touching boundary, b before a", at(10, 0), 60, at(9, 0), 60, false},
		{"disjoint", at(10, 0), 30, at(12, 0), 30, false},
		{"one minute overlap", at(10, 0), 61, at(11, 0), 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aMinutes, tt.bStart, tt.bMinutes))
			// Overlap is symmetric.
			assert.Equal(t, tt.want, Overlaps(tt.bStart, tt.bMinutes, tt.aStart, tt.aMinutes))
		})
	}
}

func TestIsAvailable(t *testing.T) {
	occupied := []Interval{
		{AppointmentID: "a1", Start: at(10, 0), DurationMinutes: 60},
		{AppointmentID: "a2", Start: at(14, 0), DurationMinutes: 30},
	}

	// Mid-slot booking is rejected.
	assert.False(t, IsAvailable(occupied, at(10, 30), 30, ""))
	// Back-to-back booking at the boundary is fine.
	assert.True(t, IsAvailable(occupied, at(11, 0), 30, ""))
	assert.True(t, IsAvailable(occupied, at(9, 0), 60, ""))
	// Excluding the conflicting appointment's own id frees the slot.
	assert.True(t, IsAvailable(occupied, at(10, 30), 30, "a1"))
	assert.False(t, IsAvailable(occupied, at(10, 30), 30, "a2"))
	// Empty snapshot is always available.
	assert.True(t, IsAvailable(nil, at(10, 0), 480, ""))
}

// TestIsAvailableMatchesBruteForce cross-checks the predicate against a
// direct minute-by-minute occupancy model on random schedules.
func TestIsAvailableMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	day := at(0, 0)

	for trial := 0; trial < 200; trial++ {
		occupied := make([]Interval, 0, 8)
		taken := make(map[int]bool)
		for len(occupied) < 8 {
			start := rng.Intn(24 * 60)
			minutes := 1 + rng.Intn(120)
			candidate := Interval{
				AppointmentID:   "x",
				Start:           day.Add(time.Duration(start) * time.Minute),
				DurationMinutes: minutes,
			}
			conflict := false
			for m := start; m < start+minutes; m++ {
				if taken[m] {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}
			for m := start; m < start+minutes; m++ {
				taken[m] = true
			}
			occupied = append(occupied, candidate)
		}

		qStart := rng.Intn(24 * 60)
		qMinutes := 1 + rng.Intn(120)
		want := true
		for m := qStart; m < qStart+qMinutes; m++ {
			if taken[m] {
				want = false
				break
			}
		}
		got := IsAvailable(occupied, day.Add(time.Duration(qStart)*time.Minute), qMinutes, "")
		require.Equal(t, want, got, "trial %d: query start=%d minutes=%d", trial, qStart, qMinutes)
	}
}

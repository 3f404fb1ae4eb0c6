package entities

import "time"

// Shift identifies a production work shift (turno).
type Shift int

const (
	ShiftS1 Shift = 1
	ShiftS2 Shift = 2
	ShiftS3 Shift = 3
)

// CurrentShift maps a wall-clock instant to its shift. A boundary hour
// belongs to the later shift: 07:00 is S1, 15:00 is S2, 23:00 is S3.
func CurrentShift(t time.Time) Shift {
	hour := t.Hour()
	switch {
	case hour >= 7 && hour < 15:
		return ShiftS1
	case hour >= 15 && hour < 23:
		return ShiftS2
	default:
		return ShiftS3
	}
}

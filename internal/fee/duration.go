package fee

import (
	"fmt"
	"math"
	"time"
)

// Duration is an elapsed stay broken into display units.
type Duration struct {
	Hours      int     `json:"hours"`
	Minutes    int     `json:"minutes"`
	Seconds    int     `json:"seconds"`
	TotalHours float64 `json:"total_hours"`
	Formatted  string  `json:"formatted"`
}

func decompose(elapsed time.Duration) Duration {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	totalHours := float64(ms) / float64(time.Hour/time.Millisecond)
	if math.IsNaN(totalHours) || math.IsInf(totalHours, 0) || totalHours < 0 {
		totalHours = 0
	}

	hours := ms / int64(time.Hour/time.Millisecond)
	remainder := ms - hours*int64(time.Hour/time.Millisecond)
	minutes := remainder / int64(time.Minute/time.Millisecond)
	seconds := (remainder / int64(time.Second/time.Millisecond)) % 60

	d := Duration{
		Hours:      clamp(hours),
		Minutes:    clamp(minutes),
		Seconds:    clamp(seconds),
		TotalHours: totalHours,
	}
	d.Formatted = fmt.Sprintf("%02d:%02d:%02d", d.Hours, d.Minutes, d.Seconds)
	return d
}

func clamp(v int64) int {
	if v < 0 {
		return 0
	}
	return int(v)
}

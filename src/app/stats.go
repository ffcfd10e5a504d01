package app

import (
	"time"
)

// frameStats accumulates frame times and reports them once per interval.
type frameStats struct {
	interval time.Duration
	elapsed  time.Duration
	frames   int
	worst    time.Duration
}

type frameReport struct {
	Frames  int
	Average time.Duration
	Worst   time.Duration
}

// add records one frame. It returns a report when interval has passed and
// starts a new window.
func (s *frameStats) add(frame time.Duration) (frameReport, bool) {
	s.elapsed += frame
	s.frames++
	s.worst = max(s.worst, frame)
	if s.elapsed < s.interval {
		return frameReport{}, false
	}

	report := frameReport{
		Frames:  s.frames,
		Average: s.elapsed / time.Duration(s.frames),
		Worst:   s.worst,
	}
	*s = frameStats{interval: s.interval}
	return report, true
}

package patient

import "time"

// DefaultWeekend is the ward's weekend when none is configured.
var DefaultWeekend = []time.Weekday{time.Friday, time.Saturday}

// ShiftClassifier maps an admission timestamp to the shift that took it.
// Weekdays run morning [07,15), evening [15,23) and night otherwise; weekend
// days run weekend_morning [07,19) and weekend_night otherwise. Times are
// classified in the location they carry.
type ShiftClassifier struct {
	weekend map[time.Weekday]bool
}

func NewShiftClassifier(weekend ...time.Weekday) *ShiftClassifier {
	if len(weekend) == 0 {
		weekend = DefaultWeekend
	}
	c := &ShiftClassifier{weekend: make(map[time.Weekday]bool, len(weekend))}
	for _, d := range weekend {
		c.weekend[d] = true
	}
	return c
}

func (c *ShiftClassifier) IsWeekend(t time.Time) bool {
	return c.weekend[t.Weekday()]
}

func (c *ShiftClassifier) Classify(t time.Time) (Shift, bool) {
	h := t.Hour()
	if c.IsWeekend(t) {
		if h >= 7 && h < 19 {
			return ShiftWeekendMorning, true
		}
		return ShiftWeekendNight, true
	}
	switch {
	case h >= 7 && h < 15:
		return ShiftMorning, false
	case h >= 15 && h < 23:
		return ShiftEvening, false
	default:
		return ShiftNight, false
	}
}

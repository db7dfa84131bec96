package forecast

import (
	"time"
)

const dateLayout = "2006-01-02"

// Calendar knows which days the market trades: weekdays minus a configured
// holiday set.
type Calendar struct {
	holidays map[string]bool
}

// NewCalendar builds a calendar from holiday dates in YYYY-MM-DD form.
// Unparseable entries are ignored.
func NewCalendar(holidays []string) *Calendar {
	m := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		if _, err := time.Parse(dateLayout, h); err == nil {
			m[h] = true
		}
	}
	return &Calendar{holidays: m}
}

func (c *Calendar) IsBusinessDay(d time.Time) bool {
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[d.Format(dateLayout)]
}

// NextBusinessDays returns the n trading days strictly after from.
func (c *Calendar) NextBusinessDays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := from
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if c.IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}

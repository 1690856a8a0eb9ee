package stats

import (
	"fmt"
	"time"
)

// Periods are the canonical bucket identifiers for one timestamp.
type Periods struct {
	Daily  string
	Weekly string
}

// ResolvePeriods maps a timestamp to its UTC calendar day and ISO-8601 week.
// The daily id is YYYY-MM-DD; the weekly id is YYYY-Www where week 1 is the
// week containing the year's first Thursday and weeks run Monday to Sunday.
func ResolvePeriods(t time.Time) Periods {
	utc := t.UTC()
	isoYear, isoWeek := utc.ISOWeek()
	return Periods{
		Daily:  utc.Format("2006-01-02"),
		Weekly: fmt.Sprintf("%04d-W%02d", isoYear, isoWeek),
	}
}

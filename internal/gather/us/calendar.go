package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// calendarSource is the part of the Alpaca trading client used to find
// trading days.
type calendarSource interface {
	GetCalendar(req alpaca.GetCalendarRequest) ([]alpaca.CalendarDay, error)
}

var _ calendarSource = (*alpaca.Client)(nil)

// newCalendarSource returns an Alpaca trading client for baseURL.
func newCalendarSource(apiKey, apiSecret, baseURL string) calendarSource {
	return alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

// latestFinishedTradingDay returns the most recent trading day whose session
// has ended at now (after 20:05 ET, once extended-hours bars have settled).
func latestFinishedTradingDay(cal calendarSource, now time.Time) (time.Time, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now = now.In(et)

	days, err := cal.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	today := now.Format(time.DateOnly)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 20, 5, 0, 0, et)
	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.Parse(time.DateOnly, days[i].Date)
		if err != nil {
			continue
		}
		if days[i].Date == today {
			if now.After(cutoff) {
				return d, nil
			}
			continue
		}
		if days[i].Date < today {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("no finished trading day in the week before %s", today)
}

// previousWeekday returns the last Monday-to-Friday date strictly before
// now's UTC date. It ignores exchange holidays.
func previousWeekday(now time.Time) time.Time {
	now = now.UTC()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for {
		d = d.AddDate(0, 0, -1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return d
		}
	}
}

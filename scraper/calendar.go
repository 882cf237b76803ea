package scraper

import (
	"fmt"
	"strings"
	"time"

	"taxdeed-scraper/utils"
)

// maxCalendarMonths caps the month walk. Advancement is verified against the
// month label, but a widget that wraps past its last published month still
// changes its label, and the republished months never read as empty.
const maxCalendarMonths = 24

// CollectAuctionDates pages the calendar widget forward month by month,
// gathering every date flagged as an auction day. The walk stops at the
// first month that shows no flagged days and lies beyond the current month:
// empty months in the past keep the scan going (gaps happen), an empty
// future month means the site has published everything it has.
func (e *Engine) CollectAuctionDates(now time.Time) ([]string, error) {
	cal := e.prof.Calendar
	if cal == nil {
		return nil, fmt.Errorf("profile %s has no calendar configuration", e.prof.Name)
	}

	if err := e.page.Navigate(cal.URL); err != nil {
		return nil, err
	}
	if cal.LabelLocator != "" {
		if !AwaitElement(e.page, cal.LabelLocator, e.wait) {
			return nil, fmt.Errorf("calendar label (%s) did not appear", cal.LabelLocator)
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	seen := utils.NewStringSet()
	var dates []string

	for offset := 0; offset < maxCalendarMonths; offset++ {
		month := monthStart.AddDate(0, offset, 0)

		var dayValues []string
		var err error
		if cal.DayAttr != "" {
			dayValues, err = e.page.Attrs(cal.DayLocator, cal.DayAttr)
		} else {
			dayValues, err = e.page.Texts(cal.DayLocator)
		}
		if err != nil {
			return nil, fmt.Errorf("reading calendar days: %w", err)
		}

		flagged := 0
		for _, v := range dayValues {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			flagged++
			// Widgets repeat edge-of-month cells in adjacent views.
			if seen.Add(v) {
				dates = append(dates, v)
			}
		}
		e.logger.Info("[calendar] %s: %s shows %d auction day(s)",
			e.prof.Name, month.Format("January 2006"), flagged)

		if flagged == 0 && month.After(monthStart) {
			e.logger.Info("[calendar] %s: collected %d auction date(s)", e.prof.Name, len(dates))
			return dates, nil
		}

		advanced, err := e.AdvanceScope(cal.NextLocator, cal.LabelLocator)
		if err != nil {
			return nil, err
		}
		if !advanced {
			return nil, fmt.Errorf("%w: calendar next-month control missing", ErrStuck)
		}
	}

	e.logger.Warn("[calendar] %s: month cap (%d) reached — ending walk", e.prof.Name, maxCalendarMonths)
	e.logger.Info("[calendar] %s: collected %d auction date(s)", e.prof.Name, len(dates))
	return dates, nil
}

// Package dates provides the reporting day-window arithmetic.
package dates

import (
	"fmt"
	"time"
)

// DefaultTimezone is the reporting timezone used when none is configured.
const DefaultTimezone = "America/Los_Angeles"

// DateFormat is the wire format for report dates.
const DateFormat = "2006-01-02"

// Window is a half-open reporting window in epoch seconds. Store queries
// use strict comparisons on both ends (updated_at > Start AND < End).
type Window struct {
	Start int64
	End   int64
}

// DayWindow returns the epoch-second window covering the reporting day for
// date in the given timezone. The window is shifted one day forward of the
// nominal date; funnel-platform timestamps trail the ad-platform reporting
// date by a day and the report is keyed on the latter.
func DayWindow(date, timezone string) (Window, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Window{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	day, err := time.ParseInLocation(DateFormat, date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	day = day.AddDate(0, 0, 1)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Second)

	return Window{Start: start.Unix(), End: end.Unix()}, nil
}

// Range expands an inclusive [since, until] date pair into the list of
// dates it covers, formatted as DateFormat.
func Range(since, until string) ([]string, error) {
	start, err := time.Parse(DateFormat, since)
	if err != nil {
		return nil, fmt.Errorf("parse since %q: %w", since, err)
	}
	end, err := time.Parse(DateFormat, until)
	if err != nil {
		return nil, fmt.Errorf("parse until %q: %w", until, err)
	}

	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateFormat))
	}
	return out, nil
}

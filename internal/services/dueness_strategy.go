// Package services holds the business operations behind the API and the worker.
//
// This file maps each recurring frequency to the strategy that computes the
// next due date of a recurring expense.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Scheduler computes the occurrence after from. anchor is the template's start
// date; calendar-based frequencies keep its day of month where the month allows.
type Scheduler interface {
	Next(from, anchor time.Time) time.Time
}

type DailyScheduler struct{}

func (DailyScheduler) Next(from, _ time.Time) time.Time { return from.AddDate(0, 0, 1) }

type WeeklyScheduler struct{}

func (WeeklyScheduler) Next(from, _ time.Time) time.Time { return from.AddDate(0, 0, 7) }

// MonthlyScheduler clamps the anchor day to the last day of shorter months,
// so a template started on Jan 31 falls on Feb 28 and then Mar 31.
type MonthlyScheduler struct{}

func (MonthlyScheduler) Next(from, anchor time.Time) time.Time {
	y, m, _ := from.Date()
	return clampedDate(y, m+1, anchor.Day(), from)
}

// YearlyScheduler clamps Feb 29 anchors to Feb 28 in common years.
type YearlyScheduler struct{}

func (YearlyScheduler) Next(from, anchor time.Time) time.Time {
	return clampedDate(from.Year()+1, anchor.Month(), anchor.Day(), from)
}

// clampedDate builds year/month/day with the clock time of tod, using the
// month's last day when day overflows it.
func clampedDate(year int, month time.Month, day int, tod time.Time) time.Time {
	first := time.Date(year, month, 1, tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), tod.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

var schedulers = map[core.Frequency]Scheduler{
	core.Daily:   DailyScheduler{},
	core.Weekly:  WeeklyScheduler{},
	core.Monthly: MonthlyScheduler{},
	core.Yearly:  YearlyScheduler{},
}

// GetScheduler returns the strategy for frequency.
func GetScheduler(frequency core.Frequency) (Scheduler, error) {
	s, ok := schedulers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

// NextDueDate advances from by one period of frequency.
func NextDueDate(frequency core.Frequency, from, anchor time.Time) (time.Time, error) {
	s, err := GetScheduler(frequency)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(from, anchor), nil
}

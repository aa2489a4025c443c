package domain

import "time"

// DisplayDateLayout is the day/month/year layout used in user-facing messages.
const DisplayDateLayout = "02/01/2006"

// DateOf truncates t to its calendar date (in t's location) and returns
// midnight UTC of that date. Gate comparisons only ever see values built
// with DateOf, so time-of-day never matters.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date n days after date.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// CooldownDays converts a cooldown duration into whole days, minimum one.
func CooldownDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

// WeekOfMonth returns 1-4; days 29-31 fold into week 4.
func WeekOfMonth(date time.Time) int {
	week := (date.Day()-1)/7 + 1
	if week > 4 {
		return 4
	}
	return week
}

// FormatDate renders a date for user-facing messages.
func FormatDate(date time.Time) string {
	return DateOf(date).Format(DisplayDateLayout)
}

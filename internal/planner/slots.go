package planner

import (
	"fmt"
	"time"
)

// DaysPerWeek is the length of the planning window.
const DaysPerWeek = 7

const dateLayout = "2006-01-02"

// ParseWeekStart parses an ISO date (YYYY-MM-DD) as midnight UTC.
func ParseWeekStart(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("week start %q is not a YYYY-MM-DD date: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date in the form accepted by ParseWeekStart.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// GetNextMonday returns midnight UTC of the Monday after t. A Monday yields
// the following week's Monday.
func GetNextMonday(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return t.AddDate(0, 0, days)
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// GenerateSlots lists the week's slots ordered by date, then by the order of
// mealTypes within a day.
func GenerateSlots(weekStart time.Time, mealTypes []MealType) []Slot {
	slots := make([]Slot, 0, DaysPerWeek*len(mealTypes))
	for day := 0; day < DaysPerWeek; day++ {
		date := weekStart.AddDate(0, 0, day)
		for _, mt := range mealTypes {
			slots = append(slots, Slot{Date: date, MealType: mt, DayIndex: day + 1})
		}
	}
	return slots
}

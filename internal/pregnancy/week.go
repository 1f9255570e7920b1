package pregnancy

import (
	"math"
	"time"
)

const (
	// FinalCountdownDays - с какого остатка дней включается финальный отсчет
	FinalCountdownDays = 30
	secondTrimesterDay = 91
	thirdTrimesterDay  = 182
	day                = 24 * time.Hour
)

// CurrentWeek - неделя беременности, ограниченная диапазоном 1..40
func CurrentWeek(due, now time.Time) int {
	conception := due.Add(-GestationDays * day)
	days := int(math.Floor(now.Sub(conception).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return min(40, max(1, days/7+1))
}

// Countdown - обратный отсчет до ПДР
type Countdown struct {
	DaysRemaining  int  `json:"daysRemaining"`
	DaysPregnant   int  `json:"daysPregnant"`
	Trimester      int  `json:"trimester"`
	Percent        int  `json:"percent"`
	FinalCountdown bool `json:"finalCountdown"`
	// DueToday и PastDue соответствуют режиму "Baby Watch"
	DueToday bool `json:"dueToday"`
	PastDue  bool `json:"pastDue"`
}

// NewCountdown считает дни от полуночи текущего дня до ПДР
func NewCountdown(due, now time.Time) Countdown {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())

	remaining := int(math.Round(dueDay.Sub(today).Hours() / 24))
	pregnant := GestationDays - remaining

	trimester := 1
	switch {
	case pregnant > thirdTrimesterDay:
		trimester = 3
	case pregnant > secondTrimesterDay:
		trimester = 2
	}

	percent := int(math.Round(float64(pregnant) / GestationDays * 100))
	percent = min(100, max(0, percent))

	return Countdown{
		DaysRemaining:  remaining,
		DaysPregnant:   pregnant,
		Trimester:      trimester,
		Percent:        percent,
		FinalCountdown: remaining > 0 && remaining <= FinalCountdownDays,
		DueToday:       remaining == 0,
		PastDue:        remaining < 0,
	}
}

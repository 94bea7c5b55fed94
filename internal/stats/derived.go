package stats

import (
	"math"
	"time"

	"github.com/example/retype/pkg/models"
)

// NoProductiveDay is returned by MostProductiveDay for a week without activity
const NoProductiveDay = -1

// DaysPerWeek is the length of every weekly series
const DaysPerWeek = 7

// WeekDates returns the Monday and Sunday of the week offset weeks away from
// the week containing now. Offset 0 is the current week, -1 the previous one.
func WeekDates(offset int, now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	start = today.AddDate(0, 0, -WeekdayIndex(now)+7*offset)
	return start, start.AddDate(0, 0, DaysPerWeek-1)
}

// WeekdayIndex maps a time to its position in a Monday-first week
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ProductivityScores scales each day to the busiest day of the series as
// 0..100. A day with any words scores at least 1.
func ProductivityScores(days []models.DayCount) []int {
	max := 0
	for _, d := range days {
		if d.Words > max {
			max = d.Words
		}
	}
	scores := make([]int, len(days))
	if max == 0 {
		return scores
	}
	for i, d := range days {
		if d.Words <= 0 {
			continue
		}
		score := int(math.Round(float64(d.Words) / float64(max) * 100))
		if score < 1 {
			score = 1
		}
		scores[i] = score
	}
	return scores
}

// MostProductiveDay returns the index of the day with the most words. Ties
// go to the earliest day.
func MostProductiveDay(days []models.DayCount) int {
	best := NoProductiveDay
	for i, d := range days {
		if d.Words <= 0 {
			continue
		}
		if best == NoProductiveDay || d.Words > days[best].Words {
			best = i
		}
	}
	return best
}

// Streak counts consecutive days with a non-zero score, scanning backward
// from index from until a zero day
func Streak(scores []int, from int) int {
	if from >= len(scores) {
		from = len(scores) - 1
	}
	n := 0
	for i := from; i >= 0 && scores[i] > 0; i-- {
		n++
	}
	return n
}

// StreakStart is the day index a streak is counted from: today for the
// current week, the last day for past weeks
func StreakStart(offset int, now time.Time) int {
	if offset == 0 {
		return WeekdayIndex(now)
	}
	return DaysPerWeek - 1
}

package stats

import (
	"fmt"
	"sort"
	"time"
)

// dayTotals maps day keys to their totals. Both backends reduce their data
// to this shape before aggregating.
type dayTotals map[string]Totals

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (dt dayTotals) summary(now time.Time) Summary {
	today := startOfDay(now)
	var s Summary
	s.Today = dt[today.Format(DayLayout)]
	for i := 0; i < 7; i++ {
		s.Last7Days = s.Last7Days.add(dt[today.AddDate(0, 0, -i).Format(DayLayout)])
	}

	for key, totals := range dt {
		day, err := time.ParseInLocation(DayLayout, key, now.Location())
		if err != nil {
			continue
		}
		if day.Year() == today.Year() && day.Month() == today.Month() {
			s.ThisMonth = s.ThisMonth.add(totals)
		}
	}
	return s
}

func (dt dayTotals) days(now time.Time, n int) []DayTotal {
	if n <= 0 {
		return nil
	}
	today := startOfDay(now)
	out := make([]DayTotal, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		out = append(out, DayTotal{
			Date:    day,
			Totals:  dt[day.Format(DayLayout)],
			IsToday: i == 0,
		})
	}
	return out
}

func weekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (dt dayTotals) weeks(n int) []WeekTotal {
	if n <= 0 {
		return nil
	}
	byWeek := make(map[string]*WeekTotal)
	for key, totals := range dt {
		day, err := time.Parse(DayLayout, key)
		if err != nil || totals.CompletedPomodoros == 0 {
			continue
		}
		label := weekLabel(day)
		w, ok := byWeek[label]
		if !ok {
			w = &WeekTotal{Week: label}
			byWeek[label] = w
		}
		w.Totals = w.Totals.add(totals)
		w.ActiveDays++
	}

	out := make([]WeekTotal, 0, len(byWeek))
	for _, w := range byWeek {
		out = append(out, *w)
	}
	// Zero-padded labels sort chronologically.
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func (dt dayTotals) general() General {
	var g General
	for _, totals := range dt {
		g.TotalPomodoros += totals.CompletedPomodoros
		g.TotalTime += totals.TotalWorkTime
		if totals.CompletedPomodoros > 0 {
			g.ActiveDays++
		}
	}
	if g.ActiveDays > 0 {
		g.AvgPerDay = float64(g.TotalPomodoros) / float64(g.ActiveDays)
	}
	return g
}

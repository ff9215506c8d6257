// Package forecast collapses sub-daily provider samples into daily summaries.
package forecast

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
)

// MaxDays is the number of daily summaries returned after today is dropped.
const MaxDays = 5

const dateLayout = "2006-01-02"

// Sample is one sub-daily reading (typically a 3-hour step) from the provider.
type Sample struct {
	Time      time.Time
	Temp      float64
	Condition string
	Icon      string
	Humidity  float64
	WindSpeed float64
}

type dayGroup struct {
	date       string
	day        time.Time
	temps      []int
	conditions []string
	icons      []string
	humidity   []float64
	wind       []float64
}

var chineseWeekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// Aggregate groups samples by calendar date in loc, summarises each day and
// returns up to MaxDays days in ascending order, skipping the first
// (partially elapsed) day. A nil loc means time.Local.
func Aggregate(samples []Sample, loc *time.Location, locale string) []models.DailyForecast {
	if loc == nil {
		loc = time.Local
	}

	groups := make(map[string]*dayGroup)
	for _, s := range samples {
		t := s.Time.In(loc)
		key := t.Format(dateLayout)

		g, ok := groups[key]
		if !ok {
			g = &dayGroup{date: key, day: t}
			groups[key] = g
		}

		g.temps = append(g.temps, int(math.Round(s.Temp)))
		g.conditions = append(g.conditions, s.Condition)
		g.icons = append(g.icons, s.Icon)
		g.humidity = append(g.humidity, s.Humidity)
		g.wind = append(g.wind, s.WindSpeed)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) <= 1 {
		return []models.DailyForecast{}
	}
	keys = keys[1:]
	if len(keys) > MaxDays {
		keys = keys[:MaxDays]
	}

	days := make([]models.DailyForecast, 0, len(keys))
	for _, k := range keys {
		days = append(days, summarize(groups[k], locale))
	}
	return days
}

func summarize(g *dayGroup, locale string) models.DailyForecast {
	maxTemp, minTemp := g.temps[0], g.temps[0]
	for _, t := range g.temps[1:] {
		if t > maxTemp {
			maxTemp = t
		}
		if t < minTemp {
			minTemp = t
		}
	}

	return models.DailyForecast{
		Date:      g.date,
		DayName:   DayName(g.day.Weekday(), locale),
		MaxTemp:   maxTemp,
		MinTemp:   minTemp,
		Condition: Dominant(g.conditions),
		Icon:      Dominant(g.icons),
		Humidity:  int(math.Round(mean(g.humidity))),
		WindSpeed: math.Round(mean(g.wind)*10) / 10,
	}
}

// Dominant returns the most frequent value. Ties go to the value seen first.
func Dominant(values []string) string {
	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	var best string
	bestCount := 0
	for _, v := range order {
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// DayName renders a weekday for the given provider locale.
func DayName(d time.Weekday, locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "zh") {
		return chineseWeekdays[d]
	}
	return d.String()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

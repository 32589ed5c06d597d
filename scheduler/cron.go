package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is the five-field subset (minute hour day-of-month month
// day-of-week) the flow designer can publish: `*`, plain numbers, comma
// lists and `*/n` steps.
type CronExpr struct {
	minutes  map[int]bool
	hours    map[int]bool
	days     map[int]bool
	months   map[int]bool
	weekdays map[int]bool
}

func ParseCron(expr string) (*CronExpr, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}
	bounds := []struct{ min, max int }{
		{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6},
	}
	sets := make([]map[int]bool, 5)
	for i, field := range fields {
		set, err := parseField(field, bounds[i].min, bounds[i].max)
		if err != nil {
			return nil, fmt.Errorf("cron field %d: %w", i+1, err)
		}
		sets[i] = set
	}
	return &CronExpr{
		minutes:  sets[0],
		hours:    sets[1],
		days:     sets[2],
		months:   sets[3],
		weekdays: sets[4],
	}, nil
}

func parseField(field string, min int, max int) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		switch {
		case part == "*":
			for v := min; v <= max; v++ {
				set[v] = true
			}
		case strings.HasPrefix(part, "*/"):
			step, err := strconv.Atoi(part[2:])
			if err != nil || step <= 0 {
				return nil, fmt.Errorf("invalid step %q", part)
			}
			for v := min; v <= max; v += step {
				set[v] = true
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", part)
			}
			if v < min || v > max {
				return nil, fmt.Errorf("value %d out of range [%d,%d]", v, min, max)
			}
			set[v] = true
		}
	}
	return set, nil
}

func (c *CronExpr) matches(t time.Time) bool {
	return c.minutes[t.Minute()] &&
		c.hours[t.Hour()] &&
		c.days[t.Day()] &&
		c.months[int(t.Month())] &&
		c.weekdays[int(t.Weekday())]
}

// Next returns the first matching instant strictly after t, scanning minute
// by minute for at most one year.
func (c *CronExpr) Next(t time.Time) time.Time {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(366 * 24 * time.Hour)
	for candidate.Before(limit) {
		if c.matches(candidate) {
			return candidate
		}
		candidate = candidate.Add(time.Minute)
	}
	return limit
}

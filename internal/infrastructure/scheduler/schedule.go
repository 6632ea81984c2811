package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ParseSchedule accepts "@every <duration>" or a 5-field cron expression.
func ParseSchedule(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", rest, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("interval must be positive: %s", d)
		}
		return Every(d), nil
	}
	return ParseCron(spec)
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERVAL
// ══════════════════════════════════════════════════════════════════════════════

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every creates an IntervalSchedule.
func Every(d time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: d}
}

// Next implements Schedule.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

func (s *IntervalSchedule) String() string {
	return "@every " + s.Interval.String()
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON
// ══════════════════════════════════════════════════════════════════════════════

// CronSchedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week (0 = Sunday).
// Fields accept *, */n, n, n-m, n-m/s and comma lists.
type CronSchedule struct {
	raw      string
	minutes  []int
	hours    []int
	days     []int
	months   []int
	weekdays []int
}

// ParseCron parses a cron expression.
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	bounds := [5]struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day", 1, 31},
		{"month", 1, 12},
		{"weekday", 0, 6},
	}

	var parsed [5][]int
	for i, f := range fields {
		values, err := parseCronField(f, bounds[i].min, bounds[i].max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", bounds[i].name, err)
		}
		parsed[i] = values
	}

	return &CronSchedule{
		raw:      expr,
		minutes:  parsed[0],
		hours:    parsed[1],
		days:     parsed[2],
		months:   parsed[3],
		weekdays: parsed[4],
	}, nil
}

func parseCronField(field string, lo, hi int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(field, ",") {
		values, err := parseCronPart(part, lo, hi)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parseCronPart(part string, lo, hi int) ([]int, error) {
	rangePart, stepPart, hasStep := strings.Cut(part, "/")
	step := 1
	if hasStep {
		n, err := strconv.Atoi(stepPart)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid step %q", stepPart)
		}
		step = n
	}

	start, end := lo, hi
	switch {
	case rangePart == "*":
	case strings.Contains(rangePart, "-"):
		a, b, _ := strings.Cut(rangePart, "-")
		var err error
		if start, err = strconv.Atoi(a); err != nil {
			return nil, fmt.Errorf("invalid range start %q", a)
		}
		if end, err = strconv.Atoi(b); err != nil {
			return nil, fmt.Errorf("invalid range end %q", b)
		}
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", rangePart)
		}
		start = v
		if !hasStep {
			end = v
		}
	}

	if start < lo || end > hi || start > end {
		return nil, fmt.Errorf("%q out of range [%d-%d]", part, lo, hi)
	}

	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}

// Next returns the first matching minute after t, or the zero time when
// nothing matches within a year.
func (c *CronSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	for range 366 * 24 * 60 {
		if c.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

func (c *CronSchedule) matches(t time.Time) bool {
	return slices.Contains(c.minutes, t.Minute()) &&
		slices.Contains(c.hours, t.Hour()) &&
		slices.Contains(c.days, t.Day()) &&
		slices.Contains(c.months, int(t.Month())) &&
		slices.Contains(c.weekdays, int(t.Weekday()))
}

func (c *CronSchedule) String() string {
	return c.raw
}

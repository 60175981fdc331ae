package triggers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
)

var weekdayNames = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Weekdays rewrites a day_of_week expression where 0 is Monday (names,
// numbers, ranges, steps and lists) into an explicit Sunday-first list.
// A bare "*" is kept so the day field alone decides.
func Weekdays(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == models.Wildcard || expr == "?" {
		return models.Wildcard, nil
	}

	var days []int
	for _, part := range strings.Split(expr, ",") {
		monFirst, err := weekdayPart(strings.ToLower(strings.TrimSpace(part)))
		if err != nil {
			return "", fmt.Errorf("%w: day_of_week %q: %w", errs.ErrInvalidCronField, expr, err)
		}

		for _, d := range monFirst {
			days = append(days, (d+1)%7)
		}
	}

	slices.Sort(days)
	days = slices.Compact(days)

	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strconv.Itoa(d))
	}

	return strings.Join(out, ","), nil
}

// weekdayPart expands one list element into Monday-first day numbers.
func weekdayPart(part string) ([]int, error) {
	base, stepStr, stepped := strings.Cut(part, "/")

	step := 1
	if stepped {
		var err error
		step, err = strconv.Atoi(stepStr)
		if err != nil || step < 1 {
			return nil, fmt.Errorf("bad step %q", stepStr)
		}
	}

	var lo, hi int
	switch {
	case base == models.Wildcard:
		lo, hi = 0, 6
	case strings.Contains(base, "-"):
		from, to, _ := strings.Cut(base, "-")

		var err error
		if lo, err = weekday(from); err != nil {
			return nil, err
		}
		if hi, err = weekday(to); err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, fmt.Errorf("range %q runs backwards", base)
		}
	default:
		d, err := weekday(base)
		if err != nil {
			return nil, err
		}
		lo, hi = d, d
		if stepped {
			hi = 6
		}
	}

	var days []int
	for d := lo; d <= hi; d += step {
		days = append(days, d)
	}

	return days, nil
}

func weekday(s string) (int, error) {
	if i := slices.Index(weekdayNames, s); i >= 0 {
		return i, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 6 {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}

	return n, nil
}

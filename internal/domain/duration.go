package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// durationUnit pairs a unit label with its length in seconds.
type durationUnit struct {
	label   string
	seconds float64
	re      *regexp.Regexp
}

// durationUnits is in precedence order, seconds before minutes before hours.
// ParseDuration stops at the first unit whose pattern matches anywhere in the
// text, so the order is the tie-breaker for reports that mention several units.
var durationUnits = []durationUnit{
	newDurationUnit("second", 1),
	newDurationUnit("s", 1),
	newDurationUnit("Second", 1),
	newDurationUnit("segundo", 1),
	newDurationUnit("minute", 60),
	newDurationUnit("m", 60),
	newDurationUnit("min", 60),
	newDurationUnit("Minute", 60),
	newDurationUnit("hour", 3600),
	newDurationUnit("h", 3600),
	newDurationUnit("Hour", 3600),
}

// maxDurationSeconds bounds parsed values; larger numbers are reported as absent.
const maxDurationSeconds = math.MaxInt32

// newDurationUnit compiles "<digits>[+] <label>[s]", e.g. "45 minutes", "30s", "10+ min".
func newDurationUnit(label string, seconds float64) durationUnit {
	return durationUnit{
		label:   label,
		seconds: seconds,
		re:      regexp.MustCompile(`\s*(\d+)\+?\s*` + regexp.QuoteMeta(label) + `s?`),
	}
}

// ParseDuration converts a free-text duration description such as "45 minutes"
// or "30s" into whole seconds. ok is false when no known unit label follows a
// number anywhere in the text, which callers treat as "absent" (distinct from
// a zero-second duration).
//
// Units are tried in a fixed precedence order and the first one that matches
// wins, even if the text mentions others: "5 minutes 30 seconds" yields 30.
func ParseDuration(text string) (seconds int, ok bool) {
	for _, u := range durationUnits {
		m := u.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		total := math.Trunc(n * u.seconds)
		if total > maxDurationSeconds {
			return 0, false
		}
		return int(total), true
	}
	return 0, false
}

// ParseDurationValue is ParseDuration for values that are not already text.
// Non-string values are rendered with fmt.Sprint before matching; nil is absent.
func ParseDurationValue(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return ParseDuration(t)
	case *string:
		if t == nil {
			return 0, false
		}
		return ParseDuration(*t)
	default:
		return ParseDuration(fmt.Sprint(t))
	}
}

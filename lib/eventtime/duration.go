package eventtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidDuration = fmt.Errorf("invalid duration")

var durationUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"μs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
}

// ParseDuration reads durations like time.ParseDuration, values out of range clamp at the int64 bounds.
// A plain number is nanoseconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	raw := s
	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return 0, errors.WithMessagef(ErrInvalidDuration, "%q", raw)
	}
	if strings.Trim(s, "0123456789") == "" {
		s += "ns"
	}

	var total time.Duration
	for s != "" {
		i := digits(s)
		whole := s[:i]
		s = s[i:]
		fraction := ""
		if s != "" && s[0] == '.' {
			j := 1 + digits(s[1:])
			fraction = s[1:j]
			s = s[j:]
		}
		if whole == "" && fraction == "" {
			return 0, errors.WithMessagef(ErrInvalidDuration, "%q", raw)
		}
		j := 0
		for j < len(s) && s[j] != '.' && (s[j] < '0' || s[j] > '9') {
			j++
		}
		unit, ok := durationUnits[s[:j]]
		if !ok {
			return 0, errors.WithMessagef(ErrInvalidDuration, "%q: unknown unit %q", raw, s[:j])
		}
		s = s[j:]

		amount := time.Duration(math.MaxInt64)
		if whole == "" {
			amount = 0
		} else if n, err := strconv.ParseInt(whole, 10, 64); err == nil {
			amount = SaturatingDuration(n, unit)
		}
		if fraction != "" {
			f, _ := strconv.ParseFloat("0."+fraction, 64)
			amount = saturatingAdd(amount, time.Duration(f*float64(unit)))
		}
		total = saturatingAdd(total, amount)
	}
	if negative {
		return -total, nil
	}
	return total, nil
}

func digits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// saturatingAdd adds two non negative durations
func saturatingAdd(a, b time.Duration) time.Duration {
	if a > time.Duration(math.MaxInt64)-b {
		return time.Duration(math.MaxInt64)
	}
	return a + b
}

package load

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// placeholderRe matches {{name}} and {{$generator:arg:arg}}.
var placeholderRe = regexp.MustCompile(`\{\{\s*(\$?[A-Za-z_][A-Za-z0-9_.\-]*)((?::[^:}]*)*)\s*\}\}`)

// Lookup resolves a plain {{name}} variable.
type Lookup func(name string) (string, bool)

// Render expands every placeholder in input. Generators ($uuid, $uuid8,
// $randFloat:min:max, $randInt:min:max, $timestamp) produce a fresh value
// per occurrence. Plain names are resolved through lookup; unresolved
// names and malformed generators are left untouched.
func Render(input string, lookup Lookup) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	return placeholderRe.ReplaceAllStringFunc(input, func(m string) string {
		parts := placeholderRe.FindStringSubmatch(m)
		name, args := parts[1], splitArgs(parts[2])

		if strings.HasPrefix(name, "$") {
			v, err := generate(name, args)
			if err != nil {
				return m
			}
			return v
		}
		if lookup != nil {
			if v, ok := lookup(name); ok {
				return v
			}
		}
		return m
	})
}

// CheckTemplate reports the first generator placeholder in input that is
// unknown or has bad arguments.
func CheckTemplate(input string) error {
	for _, parts := range placeholderRe.FindAllStringSubmatch(input, -1) {
		name := parts[1]
		if !strings.HasPrefix(name, "$") {
			continue
		}
		if _, err := generate(name, splitArgs(parts[2])); err != nil {
			return fmt.Errorf("placeholder %s: %w", parts[0], err)
		}
	}
	return nil
}

func splitArgs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(raw, ":"), ":")
}

func generate(name string, args []string) (string, error) {
	switch name {
	case "$uuid":
		return uuid.NewString(), nil
	case "$uuid8":
		return uuid.NewString()[:8], nil
	case "$timestamp":
		return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
	case "$randFloat":
		lo, hi, err := floatRange(args)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(lo+rand.Float64()*(hi-lo), 'f', 2, 64), nil
	case "$randInt":
		lo, hi, err := intRange(args)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(randInt(lo, hi), 10), nil
	}
	return "", fmt.Errorf("unknown generator %q", name)
}

// randInt draws from [lo, hi]. The span is computed in uint64 so ranges
// wider than math.MaxInt64 do not overflow.
func randInt(lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int64(rand.Uint64())
	}
	return lo + int64(rand.Uint64N(span+1))
}

func floatRange(args []string) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want min:max, got %d args", len(args))
	}
	lo, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad min: %w", err)
	}
	hi, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad max: %w", err)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("max %v < min %v", hi, lo)
	}
	return lo, hi, nil
}

func intRange(args []string) (int64, int64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("want min:max, got %d args", len(args))
	}
	lo, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad min: %w", err)
	}
	hi, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad max: %w", err)
	}
	if hi < lo {
		return 0, 0, fmt.Errorf("max %d < min %d", hi, lo)
	}
	return lo, hi, nil
}

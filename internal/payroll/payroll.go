// Package payroll converts logged hours into pay.
//
// Hours are carried as hundredths of an hour and money as cents, so the
// only rounding point is the final pay figure (half-up to whole cents).
package payroll

import (
	"errors"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrInvalidHours = errors.New("payroll: invalid hours value")
	ErrInvalidRate  = errors.New("payroll: invalid hourly rate")
)

// Summary is the payout for a set of day entries.
type Summary struct {
	TotalHundredths int64 // sum of hours, in hundredths of an hour
	TotalPayCents   int64
}

// Compute sums the hour entries and prices them at rateCents per hour.
// Pay is rounded half-up to whole cents. A negative rate is a programmer
// error and is rejected.
func Compute(hundredths []int64, rateCents int64) (Summary, error) {
	if rateCents < 0 {
		return Summary{}, ErrInvalidRate
	}
	var total int64
	for _, h := range hundredths {
		if h < 0 {
			return Summary{}, ErrInvalidHours
		}
		total += h
	}
	// total/100 hours × rateCents per hour, half-up on the division.
	pay := (total*rateCents + 50) / 100
	return Summary{TotalHundredths: total, TotalPayCents: pay}, nil
}

// ParseHours converts a decimal hours string ("7", "6.5", "6,25") to
// hundredths. Accepts dot or comma separators, rounds half-up on the third
// decimal. Values below zero or above 24 hours are rejected.
func ParseHours(s string) (int64, error) {
	v, err := parseFixedPoint(s)
	if err != nil {
		return 0, ErrInvalidHours
	}
	if v > 24*100 {
		return 0, ErrInvalidHours
	}
	return v, nil
}

// ParseRate converts a decimal money string to cents. Zero or negative
// rates are rejected.
func ParseRate(s string) (int64, error) {
	v, err := parseFixedPoint(s)
	if err != nil || v == 0 {
		return 0, ErrInvalidRate
	}
	return v, nil
}

// parseFixedPoint parses a non-negative decimal string into hundredths
// with half-up rounding on the third decimal place.
func parseFixedPoint(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, errors.New("bad format")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, errors.New("bad format")
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
		// "7." has no fraction to parse
		if fracPart == "" {
			return 0, errors.New("bad format")
		}
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, errors.New("bad format")
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, err
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, errors.New("overflow")
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return iv*100 + frac, nil
}

// FormatHours renders hundredths as a human hours string: 700 -> "7",
// 650 -> "6.5", 625 -> "6.25".
func FormatHours(hundredths int64) string {
	whole := hundredths / 100
	frac := hundredths % 100
	switch {
	case frac == 0:
		return strconv.FormatInt(whole, 10)
	case frac%10 == 0:
		return strconv.FormatInt(whole, 10) + "." + strconv.FormatInt(frac/10, 10)
	default:
		return strconv.FormatInt(whole, 10) + "." + pad2(frac)
	}
}

// FormatCents renders cents as a fixed two-decimal money string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

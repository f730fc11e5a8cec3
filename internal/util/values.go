package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	capacityPattern = regexp.MustCompile(`(?i)^(\d{1,4})\s*(GB|TB)$`)
	percentPattern  = regexp.MustCompile(`^(\d{1,3})\s*%$`)
	serialPattern   = regexp.MustCompile(`^[A-Z0-9]{8,17}$`)
	imeiSeparators  = strings.NewReplacer(" ", "", "-", "", "/", "", ".", "")
)

// ParseCapacity accepts "128GB", "128 gb" or "1TB" and returns the compact
// upper-case form.
func ParseCapacity(input string) (string, bool) {
	m := capacityPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return "", false
	}
	return strconv.Itoa(n) + strings.ToUpper(m[2]), true
}

// ParsePercent accepts "87%" or "87 %" in the range 0..100.
func ParsePercent(input string) (string, bool) {
	m := percentPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > 100 {
		return "", false
	}
	return strconv.Itoa(n) + "%", true
}

// ParseSerial takes the first token of input and checks it looks like a
// vendor serial number.
func ParseSerial(input string) (string, bool) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", false
	}
	s := strings.ToUpper(fields[0])
	if !serialPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// ParseIMEI drops common separators and requires exactly 15 digits.
func ParseIMEI(input string) (string, bool) {
	s := imeiSeparators.Replace(strings.TrimSpace(input))
	if len(s) != 15 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	return s, true
}

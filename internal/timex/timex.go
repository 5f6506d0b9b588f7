// Package timex parses TIMEX-style temporal expressions ("2023-05-01",
// "XXXX-05-01", "2023-W20", "(2023-05-01,2023-05-08,P7D)", "PRESENT_REF")
// and decides whether one names a single definite calendar date.
package timex

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type is a property an expression has. An expression can carry several.
type Type string

const (
	TypeDefinite  Type = "definite"
	TypeDate      Type = "date"
	TypeDateRange Type = "daterange"
	TypeDuration  Type = "duration"
	TypeTime      Type = "time"
	TypeDateTime  Type = "datetime"
	TypePresent   Type = "present"
)

// Layout is the definite date form.
const Layout = "2006-01-02"

// Expression is a parsed temporal expression. Zero date parts are unspecified.
type Expression struct {
	Raw   string
	Year  int
	Month int
	Day   int
	Week  int

	types map[Type]bool
}

var (
	reDate     = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2}|XX)-(\d{2}|XX)$`)
	reMonth    = regexp.MustCompile(`^(\d{4}|XXXX)-(\d{2})$`)
	reWeek     = regexp.MustCompile(`^(\d{4}|XXXX)-W(\d{2}|XX)(?:-(\d|WE))?$`)
	reYear     = regexp.MustCompile(`^\d{4}$`)
	reSeason   = regexp.MustCompile(`^(\d{4}|XXXX)-(SP|SU|FA|WI)$`)
	reTime     = regexp.MustCompile(`^(\d{2}(?::\d{2}(?::\d{2})?)?|MO|MI|AF|EV|NI|DT)$`)
	reDuration = regexp.MustCompile(`^P(?:\d+(?:\.\d+)?[YMWD])+$|^PT(?:\d+(?:\.\d+)?[HMS])+$`)
)

// Parse never fails. An unrecognized string yields an expression with no types.
func Parse(raw string) Expression {
	e := Expression{Raw: raw, types: make(map[Type]bool)}
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return e
	case s == "PRESENT_REF":
		e.types[TypePresent] = true
		e.types[TypeDate] = true
		return e
	case reDuration.MatchString(s):
		e.types[TypeDuration] = true
		return e
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		e.parseRange(s)
		return e
	}

	datePart, timePart, hasTime := strings.Cut(s, "T")
	if hasTime {
		if !reTime.MatchString(timePart) {
			return Expression{Raw: raw, types: map[Type]bool{}}
		}
		e.types[TypeTime] = true
	}
	if datePart == "" {
		return e
	}
	if !e.parseDate(datePart) {
		return Expression{Raw: raw, types: map[Type]bool{}}
	}
	if hasTime && e.types[TypeDate] {
		e.types[TypeDateTime] = true
	}
	return e
}

func (e *Expression) parseDate(s string) bool {
	if m := reDate.FindStringSubmatch(s); m != nil {
		e.Year, e.Month, e.Day = part(m[1]), part(m[2]), part(m[3])
		if e.Month > 12 || e.Day > 31 {
			return false
		}
		e.types[TypeDate] = true
		if e.Year > 0 && e.Month > 0 && e.Day > 0 {
			if !validDay(e.Year, e.Month, e.Day) {
				return false
			}
			e.types[TypeDefinite] = true
		}
		return true
	}
	if m := reMonth.FindStringSubmatch(s); m != nil {
		e.Year, e.Month = part(m[1]), part(m[2])
		if e.Month < 1 || e.Month > 12 {
			return false
		}
		e.types[TypeDateRange] = true
		return true
	}
	if m := reWeek.FindStringSubmatch(s); m != nil {
		e.Year, e.Week = part(m[1]), part(m[2])
		switch {
		case m[3] == "" || m[3] == "WE":
			e.types[TypeDateRange] = true
		default:
			e.types[TypeDate] = true
		}
		return true
	}
	if reYear.MatchString(s) {
		e.Year = part(s)
		e.types[TypeDateRange] = true
		return true
	}
	if reSeason.MatchString(s) {
		e.types[TypeDateRange] = true
		return true
	}
	return false
}

func (e *Expression) parseRange(s string) {
	fields := strings.Split(strings.Trim(s, "()"), ",")
	if len(fields) != 3 {
		return
	}
	if !reDuration.MatchString(strings.TrimSpace(fields[2])) {
		return
	}
	for _, f := range fields[:2] {
		if len(Parse(strings.TrimSpace(f)).types) == 0 {
			return
		}
	}
	e.types[TypeDateRange] = true
	e.types[TypeDuration] = true
}

// Has reports whether the expression carries t.
func (e Expression) Has(t Type) bool { return e.types[t] }

// Types lists the expression's types in a fixed order.
func (e Expression) Types() []Type {
	order := []Type{TypeDefinite, TypeDate, TypeDateRange, TypeDuration, TypeTime, TypeDateTime, TypePresent}
	var out []Type
	for _, t := range order {
		if e.types[t] {
			out = append(out, t)
		}
	}
	return out
}

// Valid reports whether the string was a recognizable expression at all.
func (e Expression) Valid() bool { return len(e.types) > 0 }

// Definite reports whether the expression names exactly one calendar date.
func (e Expression) Definite() bool { return e.types[TypeDefinite] }

// Date returns the calendar date of a definite expression.
func (e Expression) Date() (time.Time, bool) {
	if !e.Definite() {
		return time.Time{}, false
	}
	return time.Date(e.Year, time.Month(e.Month), e.Day, 0, 0, 0, 0, time.UTC), true
}

// IsAmbiguous is true unless s resolves to a definite calendar date.
// Unparseable input is ambiguous.
func IsAmbiguous(s string) bool {
	return !Parse(s).Definite()
}

// ParseDate parses the date part of a definite expression.
func ParseDate(s string) (time.Time, bool) {
	return Parse(s).Date()
}

// Format renders t as a definite expression.
func Format(t time.Time) string {
	return t.Format(Layout)
}

func part(s string) int {
	if strings.HasPrefix(s, "X") {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func validDay(y, m, d int) bool {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}

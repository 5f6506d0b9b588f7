package timex

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var (
	reInDays     = regexp.MustCompile(`^in (\d{1,3}) (day|days|week|weeks)$`)
	reWeekday    = regexp.MustCompile(`^(next |this |on )?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)$`)
	reDayMonth   = regexp.MustCompile(`^(?:the )?(\d{1,2})(?:st|nd|rd|th)?(?: of)? ([a-z]{3})[a-z]*\.?$`)
	reMonthDay   = regexp.MustCompile(`^([a-z]{3})[a-z]*\.? (\d{1,2})(?:st|nd|rd|th)?$`)
	reFourDigits = regexp.MustCompile(`\b\d{4}\b`)
)

// Resolve turns a user utterance into a temporal expression relative to now.
// ok is false when nothing temporal was recognized. A recognized expression
// may still be ambiguous, for example "next week" or "May 3".
func Resolve(text string, now time.Time) (string, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return "", false
	}
	if Parse(raw).Valid() {
		return raw, true
	}

	s := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch s {
	case "today", "tonight":
		return Format(today), true
	case "tomorrow":
		return Format(today.AddDate(0, 0, 1)), true
	case "day after tomorrow", "the day after tomorrow":
		return Format(today.AddDate(0, 0, 2)), true
	case "yesterday":
		return Format(today.AddDate(0, 0, -1)), true
	case "now", "right now", "asap":
		return "PRESENT_REF", true
	case "this week":
		return isoWeek(today), true
	case "next week":
		return isoWeek(today.AddDate(0, 0, 7)), true
	case "this weekend", "the weekend", "weekend":
		return isoWeek(today) + "-WE", true
	case "next weekend":
		return isoWeek(today.AddDate(0, 0, 7)) + "-WE", true
	case "this month":
		return today.Format("2006-01"), true
	case "next month":
		return today.AddDate(0, 1, 0).Format("2006-01"), true
	case "next year":
		return strconv.Itoa(today.Year() + 1), true
	}

	if m := reInDays.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return Format(today.AddDate(0, 0, n)), true
	}

	if m := reWeekday.FindStringSubmatch(s); m != nil {
		wd := weekdays[m[2]]
		if strings.TrimSpace(m[1]) == "next" {
			return Format(nextWeekday(today, wd)), true
		}
		return fmt.Sprintf("XXXX-WXX-%d", isoWeekday(wd)), true
	}

	if !reFourDigits.MatchString(s) {
		if month, day, ok := monthAndDay(s); ok {
			return fmt.Sprintf("XXXX-%02d-%02d", month, day), true
		}
		return "", false
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return "", false
	}
	return Format(t), true
}

// ResolveDefinite is Resolve restricted to definite dates.
func ResolveDefinite(text string, now time.Time) (string, bool) {
	expr, ok := Resolve(text, now)
	if !ok || IsAmbiguous(expr) {
		return "", false
	}
	date, _ := ParseDate(expr)
	return Format(date), true
}

func monthAndDay(s string) (int, int, bool) {
	var name, day string
	if m := reDayMonth.FindStringSubmatch(s); m != nil {
		day, name = m[1], m[2]
	} else if m := reMonthDay.FindStringSubmatch(s); m != nil {
		name, day = m[1], m[2]
	} else {
		return 0, 0, false
	}
	month, ok := months[name]
	if !ok {
		return 0, 0, false
	}
	d, _ := strconv.Atoi(day)
	if d < 1 || d > 31 {
		return 0, 0, false
	}
	return month, d, true
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(from.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return from.AddDate(0, 0, delta)
}

func isoWeek(t time.Time) string {
	y, w := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", y, w)
}

func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

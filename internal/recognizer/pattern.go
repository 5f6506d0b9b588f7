package recognizer

import (
	"context"
	"regexp"
	"strings"

	"github.com/wolfman30/flymebot/internal/timex"
)

const placeName = `(\p{Lu}[\p{L}'-]*(?: \p{Lu}[\p{L}'-]*)*)`

var (
	reBookIntent = regexp.MustCompile(`(?i)\b(book|flight|fly|flying|travel|trip|ticket|escape)\b`)
	reCancel     = regexp.MustCompile(`(?i)^\s*(cancel|never ?mind|forget it)\b`)
	reFrom       = regexp.MustCompile(`\b(?:from|leaving|leave) ` + placeName)
	reTo         = regexp.MustCompile(`\b(?:to|for) ` + placeName)
	reISODate    = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	reRelative   = regexp.MustCompile(`(?i)\b(today|tomorrow|next week|next month|this weekend|next weekend)\b`)
	reBudget     = regexp.MustCompile(`(?i)(?:[$€£]\s?\d+(?:[.,]\d+)?|\b\d+(?:[.,]\d+)?\s?(?:[$€£]|euros?\b|dollars?\b|usd\b|eur\b|gbp\b))`)
)

// Words that start with a capital but never name a place.
var notPlaces = map[string]bool{
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
	"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
	"Saturday": true, "Sunday": true, "I": true,
}

// Pattern is an offline recognizer driven by regular expressions. Place
// names are picked up when capitalized after "from" or "to". It is always
// configured and never fails.
type Pattern struct{}

func NewPattern() *Pattern { return &Pattern{} }

func (*Pattern) Configured() bool { return true }

func (*Pattern) Recognize(_ context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Utterance)
	if text == "" {
		return Result{Intent: IntentNone}, nil
	}
	if reCancel.MatchString(text) {
		return Result{Intent: IntentCancel, Score: 0.9}, nil
	}

	var ent Entities
	if m := reFrom.FindStringSubmatch(text); m != nil {
		ent.Origin = place(m[1])
	}
	if m := reTo.FindStringSubmatch(text); m != nil {
		ent.Destination = place(m[1])
	}

	dates := reISODate.FindAllString(text, 2)
	if len(dates) == 0 {
		if m := reRelative.FindString(text); m != "" {
			if expr, ok := timex.Resolve(m, req.Now); ok {
				dates = append(dates, expr)
			}
		}
	}
	if len(dates) > 0 {
		ent.StartDate = dates[0]
	}
	if len(dates) > 1 {
		ent.EndDate = dates[1]
	}
	if m := reBudget.FindString(text); m != "" {
		ent.Budget = strings.TrimSpace(m)
	}

	if !reBookIntent.MatchString(text) && ent.Origin == "" && ent.Destination == "" {
		return Result{Intent: IntentNone, Score: 0.5}, nil
	}
	return Result{Intent: IntentBookFlight, Score: 0.8, Entities: ent}, nil
}

// place keeps the leading words of a capitalized run that are not calendar words.
func place(run string) string {
	var kept []string
	for _, w := range strings.Fields(run) {
		if notPlaces[w] {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

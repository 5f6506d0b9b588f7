package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/flymebot/internal/timex"
)

const extractionPrompt = `You extract flight booking requests from chat messages.
Reply with a single JSON object and nothing else:
{"intent":"BookFlight|Cancel|None","score":0.0,"origin":"","destination":"","start_date":"","end_date":"","budget":""}
Rules:
- intent is BookFlight when the user wants to book, find or take a flight or trip.
- origin and destination are city names as the user wrote them, title-cased.
- start_date and end_date are TIMEX expressions: YYYY-MM-DD when the full date is known,
  XXXX-MM-DD when the year is missing, YYYY-Www for a week, YYYY-MM for a month. Leave empty when absent.
- budget keeps the amount and currency as written, for example "500€".
- Leave unknown fields as empty strings. Today is %s.`

// LLM asks a language model for a JSON extraction.
type LLM struct {
	client LLMClient
	model  string
}

// NewLLM wraps an LLMClient. model may be empty when the client has a default.
func NewLLM(client LLMClient, model string) *LLM {
	return &LLM{client: client, model: model}
}

func (l *LLM) Configured() bool { return l != nil && l.client != nil }

func (l *LLM) Recognize(ctx context.Context, req Request) (Result, error) {
	if !l.Configured() {
		return Result{Intent: IntentNone}, ErrNotConfigured
	}
	resp, err := l.client.Complete(ctx, LLMRequest{
		Model:       l.model,
		System:      []string{fmt.Sprintf(extractionPrompt, timex.Format(req.Now))},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: req.Utterance}},
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		return Result{Intent: IntentNone}, err
	}
	return parseExtraction(resp.Text)
}

type extraction struct {
	Intent      string  `json:"intent"`
	Score       float64 `json:"score"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Budget      string  `json:"budget"`
}

func parseExtraction(text string) (Result, error) {
	body := strings.TrimSpace(text)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	var ex extraction
	if err := json.Unmarshal([]byte(body), &ex); err != nil {
		return Result{Intent: IntentNone}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	res := Result{
		Intent: normalizeIntent(ex.Intent),
		Score:  ex.Score,
		Entities: Entities{
			Origin:      strings.TrimSpace(ex.Origin),
			Destination: strings.TrimSpace(ex.Destination),
			StartDate:   strings.TrimSpace(ex.StartDate),
			EndDate:     strings.TrimSpace(ex.EndDate),
			Budget:      strings.TrimSpace(ex.Budget),
		},
	}
	if res.Intent != IntentBookFlight {
		res.Entities = Entities{}
	}
	return res, nil
}

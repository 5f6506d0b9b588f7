package dialog

import (
	"context"
	"strconv"
	"strings"
)

// PromptStyle selects how a reply is recognized.
type PromptStyle string

const (
	StyleText   PromptStyle = "text"
	StyleChoice PromptStyle = "choice"
)

// Prompt is persisted on the frame that issued it so the next turn can
// validate the reply without re-running any step.
type Prompt struct {
	Style     PromptStyle `json:"style"`
	Text      string      `json:"text"`
	Retry     string      `json:"retry,omitempty"`
	Choices   []string    `json:"choices,omitempty"`
	Validator string      `json:"validator,omitempty"`
}

// TextPrompt asks for free text. Any non-blank reply is accepted.
func TextPrompt(text string) Prompt {
	return Prompt{Style: StyleText, Text: text}
}

// ChoicePrompt asks the user to pick one of choices.
func ChoicePrompt(text string, choices ...string) Prompt {
	return Prompt{Style: StyleChoice, Text: text, Choices: choices}
}

// WithRetry sets the text re-sent when a reply is not recognized.
func (p Prompt) WithRetry(text string) Prompt {
	p.Retry = text
	return p
}

// WithValidator names a validator registered with the runtime that must
// accept the reply in addition to the style's own recognition.
func (p Prompt) WithValidator(name string) Prompt {
	p.Validator = name
	return p
}

// Activity renders the prompt for the channel.
func (p Prompt) Activity() Activity {
	return Activity{
		Type:      ActivityMessage,
		Text:      p.Text,
		Choices:   append([]string(nil), p.Choices...),
		InputHint: HintExpecting,
	}
}

// RetryActivity renders the re-prompt sent after an unrecognized reply.
func (p Prompt) RetryActivity() Activity {
	act := p.Activity()
	if p.Retry != "" {
		act.Text = p.Retry
	}
	return act
}

// FoundChoice is the recognized value of a choice prompt.
type FoundChoice struct {
	Value string `json:"value"`
	Index int    `json:"index"`
}

// Recognize applies the prompt's style to the raw reply.
func (p Prompt) Recognize(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	switch p.Style {
	case StyleChoice:
		return p.matchChoice(trimmed)
	default:
		return trimmed, true
	}
}

func (p Prompt) matchChoice(reply string) (any, bool) {
	for i, c := range p.Choices {
		if strings.EqualFold(c, reply) {
			return FoundChoice{Value: c, Index: i}, true
		}
	}
	if n, err := strconv.Atoi(reply); err == nil && n >= 1 && n <= len(p.Choices) {
		return FoundChoice{Value: p.Choices[n-1], Index: n - 1}, true
	}
	return nil, false
}

// Validator inspects a recognized reply. Returning false triggers a re-prompt.
type Validator func(ctx context.Context, value any) bool

// ValidatorFunc adapts a string check into a Validator.
func ValidatorFunc(fn func(string) bool) Validator {
	return func(_ context.Context, value any) bool {
		switch v := value.(type) {
		case string:
			return fn(v)
		case FoundChoice:
			return fn(v.Value)
		}
		return false
	}
}

package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/flymebot/internal/booking"
	"github.com/wolfman30/flymebot/internal/cards"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/internal/recognizer"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/internal/variants"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// KindMain is the top-level menu dialog.
const KindMain dialog.Kind = "main"

// DefaultJokeChance is how often the coffee joke plays before the menu prompt.
const DefaultJokeChance = 0.10

// MainState is the main dialog's frame state. Resume replaces the greeting
// when the menu loops after a finished request.
type MainState struct {
	Resume string `json:"resume,omitempty"`
}

// Deps are the collaborators of the main dialog.
type Deps struct {
	Recognizer recognizer.Recognizer
	Variants   variants.Provider
	Telemetry  telemetry.Sink
	Card       *cards.Template
	JokeChance float64
	Logger     *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Recognizer == nil {
		d.Recognizer = recognizer.Unconfigured{}
	}
	if d.Variants == nil {
		d.Variants = variants.NewRandom(0)
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Nop{}
	}
	if d.Card == nil {
		d.Card = cards.BookedFlight()
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return d
}

type mainDialog struct {
	deps Deps
}

// NewMainDialog builds the top-level waterfall: greet, recognize the
// request, run the booking flow, show the booked flight card and loop.
func NewMainDialog(deps Deps) *dialog.Waterfall[MainState] {
	m := &mainDialog{deps: deps.withDefaults()}
	return dialog.NewWaterfall(KindMain, m.introStep, m.actStep, m.finalStep)
}

func (m *mainDialog) introStep(ctx context.Context, sc *dialog.StepContext[MainState]) (dialog.Action, error) {
	if !m.deps.Recognizer.Configured() {
		sc.Send(dialog.Message(notConfiguredNotice))
		return dialog.Next(nil), nil
	}

	if m.deps.Variants.Chance(keyJoke, m.deps.JokeChance) {
		for _, line := range joke {
			sc.Send(dialog.Message(line.text), dialog.Delay(time.Duration(line.delay)*time.Millisecond))
		}
	}

	text := sc.State.Resume
	if text == "" {
		text = fmt.Sprintf("%s\n\n%s", m.deps.Variants.Pick(keyGreeting, greetings), tryHint)
	}
	return dialog.Ask(dialog.TextPrompt(text)), nil
}

func (m *mainDialog) actStep(ctx context.Context, sc *dialog.StepContext[MainState]) (dialog.Action, error) {
	if !m.deps.Recognizer.Configured() {
		return dialog.BeginDialog(booking.KindBooking, booking.Record{}), nil
	}

	utterance := sc.Result.String()
	res, err := m.deps.Recognizer.Recognize(ctx, recognizer.Request{
		ConversationID: sc.Turn.ConversationID,
		Utterance:      utterance,
		Now:            sc.Turn.Now(),
	})
	if err != nil {
		m.deps.Logger.Warn("intent recognition failed",
			"conversation_id", sc.Turn.ConversationID,
			"error", err,
		)
	}
	if err == nil && res.BookFlight() {
		return dialog.BeginDialog(booking.KindBooking, recordFrom(res.Entities)), nil
	}

	m.deps.Telemetry.Track(ctx, telemetry.Event{
		Name:           telemetry.EventIntentUnknown,
		ConversationID: sc.Turn.ConversationID,
		Severity:       telemetry.SeverityInfo,
		Properties: map[string]any{
			"utterance": utterance,
			"intent":    string(res.Intent),
		},
	})
	sc.Send(dialog.Message(m.deps.Variants.Pick(keyMisunderstood, misunderstood)))
	return dialog.Next(nil), nil
}

func (m *mainDialog) finalStep(ctx context.Context, sc *dialog.StepContext[MainState]) (dialog.Action, error) {
	if rec, ok := dialog.ResultAs[booking.Record](sc.Result); ok {
		att, err := m.deps.Card.Attachment(rec.Properties())
		if err != nil {
			return dialog.Action{}, fmt.Errorf("render booked flight card: %w", err)
		}
		sc.Send(dialog.WithAttachment(att))
	}
	next := MainState{Resume: m.deps.Variants.Pick(keyFollowUp, followUps)}
	return dialog.ReplaceDialog(KindMain, next), nil
}

func recordFrom(e recognizer.Entities) booking.Record {
	return booking.Record{
		Origin:      e.Origin,
		Destination: e.Destination,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Budget:      e.Budget,
	}
}

// NewInterceptor answers help and cancel keywords while a booking dialog is
// active. The main menu is left alone so "cancel" there reaches the
// recognizer.
func NewInterceptor() dialog.KeywordInterceptor {
	return dialog.KeywordInterceptor{
		HelpWords:   helpWords,
		HelpText:    helpText,
		CancelWords: cancelWords,
		CancelText:  cancelText,
		Kinds:       []dialog.Kind{booking.KindBooking, booking.KindStartDate, booking.KindEndDate},
	}
}

package booking

import (
	"context"
	"fmt"

	"github.com/wolfman30/flymebot/internal/cards"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/internal/timex"
)

type flow struct {
	deps Deps
}

// NewFlow builds the booking waterfall. Begin it with a Record, possibly
// pre-filled from intent recognition; set fields are never asked again.
// It ends with the confirmed Record, or with no result when the user
// declines. Cancelling a date sub-dialog only leaves that date unset.
func NewFlow(deps Deps) *dialog.Waterfall[Record] {
	f := &flow{deps: deps.withDefaults()}
	return dialog.NewWaterfall(KindBooking,
		f.originStep,
		f.destinationStep,
		f.startDateStep,
		f.endDateStep,
		f.budgetStep,
		f.confirmStep,
		f.finalStep,
	).OnEnd(f.onEnd)
}

func (f *flow) originStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	if sc.State.Origin == "" {
		msg := fmt.Sprintf("%s\n\n(example: %s)",
			f.deps.Variants.Pick(keyOriginPrompt, originPrompts),
			f.deps.Variants.Pick(keyOriginExample, originExamples))
		return dialog.Ask(dialog.TextPrompt(msg)), nil
	}
	return dialog.Next(sc.State.Origin), nil
}

func (f *flow) destinationStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	capture(&sc.State.Origin, sc.Result)
	if sc.State.Destination == "" {
		msg := fmt.Sprintf("%s\n\n(example: %s)",
			f.deps.Variants.Pick(keyDestinationPrompt, destinationPrompts),
			f.deps.Variants.Pick(keyDestinationSample, destinationExamples))
		return dialog.Ask(dialog.TextPrompt(msg)), nil
	}
	return dialog.Next(sc.State.Destination), nil
}

func (f *flow) startDateStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	capture(&sc.State.Destination, sc.Result)
	if f.deps.Variants.Chance(keyCompliment, f.deps.ComplimentChance) {
		line := f.deps.Variants.Pick(keyCompliment, compliments)
		sc.Send(dialog.Messagef(line, sc.State.Destination))
	}
	if sc.State.StartDate == "" || timex.IsAmbiguous(sc.State.StartDate) {
		return dialog.BeginDialog(KindStartDate, DateRequest{Timex: sc.State.StartDate}), nil
	}
	return dialog.Next(sc.State.StartDate), nil
}

func (f *flow) endDateStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	if !sc.Result.Present() {
		f.skipDate(ctx, sc, "start_date")
	}
	capture(&sc.State.StartDate, sc.Result)
	if sc.State.EndDate == "" || timex.IsAmbiguous(sc.State.EndDate) {
		return dialog.BeginDialog(KindEndDate, DateRequest{Timex: sc.State.EndDate}), nil
	}
	return dialog.Next(sc.State.EndDate), nil
}

func (f *flow) budgetStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	if !sc.Result.Present() {
		f.skipDate(ctx, sc, "end_date")
	}
	capture(&sc.State.EndDate, sc.Result)

	// Out of order dates only warn; the flow carries on with them.
	start, okStart := timex.ParseDate(sc.State.StartDate)
	end, okEnd := timex.ParseDate(sc.State.EndDate)
	if okStart && okEnd && end.Before(start) {
		if err := f.sendTardis(sc); err != nil {
			return dialog.Action{}, err
		}
		f.deps.Telemetry.Track(ctx, telemetry.Event{
			Name:           telemetry.EventDateOrderAnomaly,
			ConversationID: sc.Turn.ConversationID,
			Severity:       telemetry.SeverityWarning,
			Properties:     sc.State.Properties(),
		})
	}

	if sc.State.Budget == "" {
		msg := fmt.Sprintf("%s\n\n%s", f.deps.Variants.Pick(keyBudgetPrompt, budgetPrompts), budgetExample)
		return dialog.Ask(dialog.TextPrompt(msg)), nil
	}
	return dialog.Next(sc.State.Budget), nil
}

func (f *flow) confirmStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	capture(&sc.State.Budget, sc.Result)
	p := dialog.ChoicePrompt(sc.State.Summary(), ChoiceYes, ChoiceNo).WithRetry(confirmRetry)
	return dialog.Ask(p), nil
}

func (f *flow) finalStep(ctx context.Context, sc *dialog.StepContext[Record]) (dialog.Action, error) {
	choice, ok := dialog.ResultAs[dialog.FoundChoice](sc.Result)
	if ok && choice.Value == ChoiceYes {
		f.deps.Telemetry.Track(ctx, telemetry.Event{
			Name:           telemetry.EventBookingConfirmed,
			Message:        happyMessage,
			ConversationID: sc.Turn.ConversationID,
			Severity:       telemetry.SeverityInfo,
			Properties:     sc.State.Properties(),
		})
		return dialog.EndDialog(*sc.State), nil
	}

	f.deps.Telemetry.Track(ctx, telemetry.Event{
		Name:           telemetry.EventBookingRejected,
		Message:        unhappyMessage,
		ConversationID: sc.Turn.ConversationID,
		Severity:       telemetry.SeverityError,
		Properties:     sc.State.Properties(),
	})
	sc.Send(dialog.Message(f.deps.Variants.Pick(keyApology, apologies)))
	return dialog.EndDialog(nil), nil
}

// skipDate records a date sub-dialog that came back empty. Only its own
// frame was cancelled, so the booking carries on with the date unset.
func (f *flow) skipDate(ctx context.Context, sc *dialog.StepContext[Record], field string) {
	props := sc.State.Properties()
	props["field"] = field
	props["cancelled"] = sc.Result.Cancelled()
	f.deps.Telemetry.Track(ctx, telemetry.Event{
		Name:           telemetry.EventDateSkipped,
		ConversationID: sc.Turn.ConversationID,
		Severity:       telemetry.SeverityInfo,
		Properties:     props,
	})
}

func (f *flow) onEnd(ctx context.Context, t *dialog.Turn, rec Record, reason dialog.EndReason) {
	if reason != dialog.EndCancelled {
		return
	}
	f.deps.Telemetry.Track(ctx, telemetry.Event{
		Name:           telemetry.EventBookingCancelled,
		ConversationID: t.ConversationID,
		Severity:       telemetry.SeverityInfo,
		Properties:     rec.Properties(),
	})
}

func (f *flow) sendTardis(sc *dialog.StepContext[Record]) error {
	sc.Send(
		dialog.Messagef("Wait a second... Your return date (%s) is prior to your departure date (%s)!!!",
			sc.State.EndDate, sc.State.StartDate),
		dialog.Message("It seems you'll need a TARDIS. I'll call the Doctor"),
	)
	att, err := cards.HeroCard{
		Title:  tardisTitle,
		Images: []cards.CardImage{{URL: tardisImage}},
	}.Attachment()
	if err != nil {
		return err
	}
	sc.Send(dialog.WithAttachment(att))
	return nil
}

// capture stores the previous step's result into field.
func capture(field *string, r dialog.Result) {
	if s, ok := dialog.ResultAs[string](r); ok && s != "" {
		*field = s
	}
}

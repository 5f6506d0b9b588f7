package booking

import (
	"context"
	"time"

	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/internal/timex"
)

// DateRequest seeds a date sub-dialog with whatever expression is known.
type DateRequest struct {
	Timex string `json:"timex,omitempty"`
}

// DefiniteDateValidator accepts replies that resolve to one calendar date.
func DefiniteDateValidator(now func() time.Time) dialog.Validator {
	return dialog.ValidatorFunc(func(reply string) bool {
		_, ok := timex.ResolveDefinite(reply, now())
		return ok
	})
}

// NewDateResolver builds a date disambiguation sub-dialog. Definite input
// short-circuits; otherwise the user is asked until a definite date is given.
func NewDateResolver(kind dialog.Kind, prompts []string, promptKey string, deps Deps) *dialog.Waterfall[DateRequest] {
	deps = deps.withDefaults()
	return dialog.NewWaterfall(kind,
		func(ctx context.Context, sc *dialog.StepContext[DateRequest]) (dialog.Action, error) {
			switch {
			case sc.State.Timex == "":
				p := deps.Variants.Pick(promptKey, prompts)
				return dialog.Ask(dialog.TextPrompt(p).WithRetry(dateReprompt).WithValidator(ValidatorDefiniteDate)), nil
			case timex.IsAmbiguous(sc.State.Timex):
				return dialog.Ask(dialog.TextPrompt(dateReprompt).WithValidator(ValidatorDefiniteDate)), nil
			}
			return dialog.Next(sc.State.Timex), nil
		},
		func(ctx context.Context, sc *dialog.StepContext[DateRequest]) (dialog.Action, error) {
			reply := sc.Result.String()
			if date, ok := timex.ResolveDefinite(reply, sc.Turn.Now()); ok {
				sc.State.Timex = date
				return dialog.EndDialog(date), nil
			}
			deps.Logger.Warn("date reply passed validation but did not resolve",
				"conversation_id", sc.Turn.ConversationID, "reply", reply)
			return dialog.EndDialog(reply), nil
		},
	)
}

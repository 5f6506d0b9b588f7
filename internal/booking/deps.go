package booking

import (
	"time"

	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/internal/variants"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// Dialog kinds registered by this package.
const (
	KindBooking   dialog.Kind = "booking"
	KindStartDate dialog.Kind = "booking.start_date"
	KindEndDate   dialog.Kind = "booking.end_date"
)

// ValidatorDefiniteDate is the prompt validator that only accepts replies
// resolving to a single calendar date.
const ValidatorDefiniteDate = "definite_date"

// DefaultComplimentChance is how often a destination remark is sent.
const DefaultComplimentChance = 0.90

// Deps are the collaborators of the booking dialogs.
type Deps struct {
	Variants         variants.Provider
	Telemetry        telemetry.Sink
	ComplimentChance float64
	Clock            func() time.Time
	Logger           *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Variants == nil {
		d.Variants = variants.NewRandom(0)
	}
	if d.Telemetry == nil {
		d.Telemetry = telemetry.Nop{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return d
}

// Register adds the booking flow, both date sub-dialogs and the date
// validator to rt.
func Register(rt *dialog.Runtime, deps Deps) error {
	deps = deps.withDefaults()
	rt.RegisterValidator(ValidatorDefiniteDate, DefiniteDateValidator(deps.Clock))
	return rt.Register(
		NewFlow(deps),
		NewDateResolver(KindStartDate, startDatePrompts, keyStartDatePrompt, deps),
		NewDateResolver(KindEndDate, endDatePrompts, keyEndDatePrompt, deps),
	)
}

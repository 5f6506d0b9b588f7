package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/flymebot/pkg/logging"
)

var tracer = otel.Tracer("flymebot.internal.dialog")

// DefaultMaxActions bounds the actions executed in a single turn.
const DefaultMaxActions = 64

// ErrDuplicateDialog is returned when a kind is registered twice.
var ErrDuplicateDialog = errors.New("dialog: kind already registered")

// Status summarizes where a turn left the stack.
type Status string

const (
	// StatusEmpty means there was no active dialog to continue.
	StatusEmpty Status = "empty"
	// StatusWaiting means the top frame is suspended on a prompt.
	StatusWaiting Status = "waiting"
	// StatusComplete means the root frame ended during this turn.
	StatusComplete Status = "complete"
)

// TurnResult is the outcome of Begin or Continue.
type TurnResult struct {
	Status     Status
	Result     Result
	Activities []Activity
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithMaxActions overrides DefaultMaxActions.
func WithMaxActions(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxActions = n
		}
	}
}

// WithLogger sets the runtime logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides time.Now for turns.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// WithInterceptors installs interceptors that see every inbound message
// before the active frame does. They run in order.
func WithInterceptors(ics ...Interceptor) Option {
	return func(r *Runtime) {
		r.interceptors = append(r.interceptors, ics...)
	}
}

// WithIDGenerator overrides frame id generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Runtime) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// Runtime executes dialogs against a State. Register dialogs and validators
// before use; after that a Runtime is safe for concurrent use across
// conversations as long as each State is owned by one caller at a time.
type Runtime struct {
	dialogs      map[Kind]Dialog
	validators   map[string]Validator
	interceptors []Interceptor
	maxActions   int
	logger       *logging.Logger
	now          func() time.Time
	newID        func() string
}

// NewRuntime builds an empty runtime.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		dialogs:    make(map[Kind]Dialog),
		validators: make(map[string]Validator),
		maxActions: DefaultMaxActions,
		logger:     logging.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds dialogs keyed by their Kind.
func (r *Runtime) Register(dialogs ...Dialog) error {
	for _, d := range dialogs {
		if d == nil {
			continue
		}
		if _, exists := r.dialogs[d.Kind()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateDialog, d.Kind())
		}
		r.dialogs[d.Kind()] = d
	}
	return nil
}

// RegisterValidator makes a named validator available to prompts.
func (r *Runtime) RegisterValidator(name string, v Validator) {
	r.validators[name] = v
}

// Has reports whether kind is registered.
func (r *Runtime) Has(kind Kind) bool {
	_, ok := r.dialogs[kind]
	return ok
}

// Begin pushes a new frame of kind and runs until the stack suspends or
// empties. in is the message that triggered the start, if any.
func (r *Runtime) Begin(ctx context.Context, st *State, kind Kind, options any, in Activity) (*TurnResult, error) {
	if st == nil {
		return nil, ErrNilState
	}
	ctx, span := tracer.Start(ctx, "dialog.begin")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", st.ConversationID),
		attribute.String("dialog.kind", string(kind)),
		attribute.Int("dialog.depth", st.Depth()),
	)

	t := NewTurn(st.ConversationID, in, r.now())
	res, err := r.drive(ctx, t, st, BeginDialog(kind, options), true)
	return r.finish(span, st, res, err)
}

// Continue delivers an inbound message to the top frame. With an empty
// stack it does nothing and reports StatusEmpty.
func (r *Runtime) Continue(ctx context.Context, st *State, in Activity) (*TurnResult, error) {
	if st == nil {
		return nil, ErrNilState
	}
	ctx, span := tracer.Start(ctx, "dialog.continue")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", st.ConversationID),
		attribute.Int("dialog.depth", st.Depth()),
	)

	t := NewTurn(st.ConversationID, in, r.now())
	if st.Empty() {
		return &TurnResult{Status: StatusEmpty}, nil
	}
	f := st.Active()
	span.SetAttributes(attribute.String("dialog.kind", string(f.Kind)))
	d, err := r.lookup(f.Kind)
	if err != nil {
		return r.finish(span, st, nil, err)
	}

	for _, ic := range r.interceptors {
		switch ic.Intercept(ctx, t, st) {
		case Handled:
			if f.Pending != nil {
				t.Send(f.Pending.Activity())
			}
			return r.finish(span, st, waiting(t), nil)
		case Cancel:
			r.logger.Debug("dialog frame cancelled by interceptor",
				"conversation_id", st.ConversationID,
				"kind", string(f.Kind),
			)
			res, err := r.drive(ctx, t, st, EndWith(CancelledResult()), false)
			return r.finish(span, st, res, err)
		}
	}

	var act Action
	if f.Pending != nil {
		p := *f.Pending
		var validate Validator
		if p.Validator != "" {
			v, ok := r.validators[p.Validator]
			if !ok {
				return r.finish(span, st, nil, fmt.Errorf("%w: %q", ErrUnknownValidator, p.Validator))
			}
			validate = v
		}
		value, ok := p.Recognize(in.Text)
		if ok && validate != nil {
			ok = validate(ctx, value)
		}
		if !ok {
			t.Send(p.RetryActivity())
			return r.finish(span, st, waiting(t), nil)
		}
		f.Pending = nil
		act, err = d.Resume(ctx, t, f, ValueResult(value))
	} else {
		var input Result
		if text := strings.TrimSpace(in.Text); text != "" {
			input = ValueResult(text)
		}
		act, err = d.Resume(ctx, t, f, input)
	}
	if err != nil {
		return r.finish(span, st, nil, err)
	}
	res, err := r.drive(ctx, t, st, act, false)
	return r.finish(span, st, res, err)
}

// drive executes actions until the stack suspends or empties. With fresh set
// the first action is a begin on top of the current stack and the parent
// cursor is left alone.
func (r *Runtime) drive(ctx context.Context, t *Turn, st *State, act Action, fresh bool) (*TurnResult, error) {
	for n := 0; ; n++ {
		if n >= r.maxActions {
			return nil, fmt.Errorf("%w (%d actions)", ErrRunaway, r.maxActions)
		}

		if fresh {
			fresh = false
			child, err := r.lookup(act.child)
			if err != nil {
				return nil, err
			}
			nf := st.push(r.frame(act.child))
			if act, err = child.Begin(ctx, t, nf, act.options); err != nil {
				return nil, err
			}
			continue
		}

		f := st.Active()
		if f == nil {
			return nil, errors.New("dialog: action with empty stack")
		}
		d, err := r.lookup(f.Kind)
		if err != nil {
			return nil, err
		}

		switch act.kind {
		case actionPrompt:
			p := act.prompt
			f.Pending = &p
			f.Step++
			t.Send(p.Activity())
			return waiting(t), nil

		case actionNext:
			f.Step++
			act, err = d.Resume(ctx, t, f, act.result)

		case actionBegin:
			child, lookupErr := r.lookup(act.child)
			if lookupErr != nil {
				return nil, lookupErr
			}
			f.Step++
			nf := st.push(r.frame(act.child))
			act, err = child.Begin(ctx, t, nf, act.options)

		case actionEnd:
			reason := EndCompleted
			if act.result.Cancelled() {
				reason = EndCancelled
			}
			d.End(ctx, t, f, reason)
			st.pop()
			if st.Empty() {
				return &TurnResult{Status: StatusComplete, Result: act.result, Activities: t.Activities()}, nil
			}
			parent := st.Active()
			pd, lookupErr := r.lookup(parent.Kind)
			if lookupErr != nil {
				return nil, lookupErr
			}
			act, err = pd.Resume(ctx, t, parent, act.result)

		case actionReplace:
			next, lookupErr := r.lookup(act.child)
			if lookupErr != nil {
				return nil, lookupErr
			}
			d.End(ctx, t, f, EndReplaced)
			st.pop()
			nf := st.push(r.frame(act.child))
			act, err = next.Begin(ctx, t, nf, act.options)

		default:
			return nil, fmt.Errorf("dialog: %s step %d returned no action", f.Kind, f.Step)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (r *Runtime) lookup(kind Kind) (Dialog, error) {
	d, ok := r.dialogs[kind]
	if !ok {
		return nil, &UnknownDialogError{Kind: kind}
	}
	return d, nil
}

func (r *Runtime) frame(kind Kind) Frame {
	return Frame{ID: r.newID(), Kind: kind}
}

func (r *Runtime) finish(span trace.Span, st *State, res *TurnResult, err error) (*TurnResult, error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("dialog turn failed", "conversation_id", st.ConversationID, "error", err)
		return nil, err
	}
	st.Turns++
	st.UpdatedAt = r.now().UTC()
	span.SetAttributes(
		attribute.String("dialog.status", string(res.Status)),
		attribute.Int("dialog.depth_after", st.Depth()),
	)
	return res, nil
}

func waiting(t *Turn) *TurnResult {
	return &TurnResult{Status: StatusWaiting, Activities: t.Activities()}
}

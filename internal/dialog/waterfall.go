package dialog

import (
	"context"
	"encoding/json"
	"fmt"
)

// Step is one stage of a waterfall. It reads the previous result from sc
// and returns the next action.
type Step[S any] func(ctx context.Context, sc *StepContext[S]) (Action, error)

// StepContext is what a step sees. State is the frame's typed state and is
// persisted after the step returns.
type StepContext[S any] struct {
	Turn   *Turn
	State  *S
	Result Result
	Index  int
}

// Send is shorthand for sc.Turn.Send.
func (sc *StepContext[S]) Send(acts ...Activity) {
	sc.Turn.Send(acts...)
}

// Waterfall is a Dialog made of ordered steps with typed frame state.
// Resuming past the last step ends the dialog with the incoming result.
type Waterfall[S any] struct {
	kind  Kind
	steps []Step[S]
	onEnd func(ctx context.Context, t *Turn, state S, reason EndReason)
}

// NewWaterfall builds a waterfall dialog.
func NewWaterfall[S any](kind Kind, steps ...Step[S]) *Waterfall[S] {
	return &Waterfall[S]{kind: kind, steps: steps}
}

// OnEnd registers a hook that observes the final state when a frame leaves
// the stack.
func (w *Waterfall[S]) OnEnd(fn func(ctx context.Context, t *Turn, state S, reason EndReason)) *Waterfall[S] {
	w.onEnd = fn
	return w
}

// Kind implements Dialog.
func (w *Waterfall[S]) Kind() Kind { return w.kind }

// Len returns the number of steps.
func (w *Waterfall[S]) Len() int { return len(w.steps) }

// Begin implements Dialog. options may be S, *S or nil.
func (w *Waterfall[S]) Begin(ctx context.Context, t *Turn, f *Frame, options any) (Action, error) {
	state, err := coerceOptions[S](options)
	if err != nil {
		return Action{}, fmt.Errorf("dialog: begin %s: %w", w.kind, err)
	}
	f.Step = 0
	return w.run(ctx, t, f, &state, NoResult())
}

// Resume implements Dialog.
func (w *Waterfall[S]) Resume(ctx context.Context, t *Turn, f *Frame, in Result) (Action, error) {
	state, err := w.decode(f)
	if err != nil {
		return Action{}, err
	}
	return w.run(ctx, t, f, &state, in)
}

// End implements Dialog.
func (w *Waterfall[S]) End(ctx context.Context, t *Turn, f *Frame, reason EndReason) {
	if w.onEnd == nil {
		return
	}
	state, err := w.decode(f)
	if err != nil {
		return
	}
	w.onEnd(ctx, t, state, reason)
}

func (w *Waterfall[S]) run(ctx context.Context, t *Turn, f *Frame, state *S, in Result) (Action, error) {
	if f.Step >= len(w.steps) {
		return EndWith(in), nil
	}
	sc := &StepContext[S]{Turn: t, State: state, Result: in, Index: f.Step}
	act, err := w.steps[f.Step](ctx, sc)
	if err != nil {
		return Action{}, fmt.Errorf("dialog: %s step %d: %w", w.kind, f.Step, err)
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return Action{}, fmt.Errorf("dialog: encode %s state: %w", w.kind, err)
	}
	f.State = raw
	return act, nil
}

func (w *Waterfall[S]) decode(f *Frame) (S, error) {
	var state S
	if len(f.State) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(f.State, &state); err != nil {
		return state, fmt.Errorf("dialog: decode %s state: %w", w.kind, err)
	}
	return state, nil
}

func coerceOptions[S any](options any) (S, error) {
	var zero S
	switch v := options.(type) {
	case nil:
		return zero, nil
	case S:
		return v, nil
	case *S:
		if v == nil {
			return zero, nil
		}
		return *v, nil
	}
	return zero, fmt.Errorf("options %T do not fit %T", options, zero)
}

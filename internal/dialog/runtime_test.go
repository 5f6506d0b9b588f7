package dialog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kindEcho   Kind = "echo"
	kindParent Kind = "parent"
	kindChild  Kind = "child"
	kindLoop   Kind = "loop"
)

type childState struct {
	Seed string `json:"seed"`
}

type parentState struct {
	Got       string `json:"got"`
	Cancelled bool   `json:"cancelled"`
}

func echoDialog() *Waterfall[struct{}] {
	return NewWaterfall(kindEcho,
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return Ask(TextPrompt("say something")), nil
		},
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return EndDialog(sc.Result.String()), nil
		},
	)
}

func childDialog() *Waterfall[childState] {
	return NewWaterfall(kindChild,
		func(ctx context.Context, sc *StepContext[childState]) (Action, error) {
			return Ask(TextPrompt("child asks, seed " + sc.State.Seed)), nil
		},
		func(ctx context.Context, sc *StepContext[childState]) (Action, error) {
			return EndDialog(sc.State.Seed + ":" + sc.Result.String()), nil
		},
	)
}

func parentDialog() *Waterfall[parentState] {
	return NewWaterfall(kindParent,
		func(ctx context.Context, sc *StepContext[parentState]) (Action, error) {
			return BeginDialog(kindChild, childState{Seed: "s1"}), nil
		},
		func(ctx context.Context, sc *StepContext[parentState]) (Action, error) {
			if !sc.Result.Present() {
				sc.State.Cancelled = sc.Result.Cancelled()
				return Ask(TextPrompt("child gave nothing")), nil
			}
			sc.State.Got = sc.Result.String()
			return Ask(ChoicePrompt("keep it?", "Yep", "Nope")), nil
		},
		func(ctx context.Context, sc *StepContext[parentState]) (Action, error) {
			choice, ok := ResultAs[FoundChoice](sc.Result)
			if ok && choice.Value == "Yep" {
				return EndDialog(sc.State.Got), nil
			}
			return EndDialog(nil), nil
		},
	)
}

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt := NewRuntime(opts...)
	require.NoError(t, rt.Register(echoDialog(), childDialog(), parentDialog()))
	return rt
}

func TestRuntimeTextPromptRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)
	st := NewState("c1")

	res, err := rt.Begin(context.Background(), st, kindEcho, nil, Activity{})
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, res.Status)
	require.Len(t, res.Activities, 1)
	assert.Equal(t, "say something", res.Activities[0].Text)
	assert.Equal(t, HintExpecting, res.Activities[0].InputHint)

	top := st.Active()
	require.NotNil(t, top)
	assert.Equal(t, 1, top.Step)
	require.NotNil(t, top.Pending)

	res, err = rt.Continue(context.Background(), st, Inbound("  hello  "))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.Equal(t, "hello", res.Result.String())
	assert.True(t, st.Empty())
	assert.Equal(t, 2, st.Turns)
}

func TestRuntimeBlankReplyReprompts(t *testing.T) {
	rt := newTestRuntime(t)
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindEcho, nil, Activity{})
	require.NoError(t, err)

	res, err := rt.Continue(context.Background(), st, Inbound("   "))
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, res.Status)
	require.Len(t, res.Activities, 1)
	assert.Equal(t, "say something", res.Activities[0].Text)
	assert.Equal(t, 1, st.Active().Step)
}

func TestRuntimeChildResultFlowsToParent(t *testing.T) {
	rt := newTestRuntime(t)
	st := NewState("c1")

	res, err := rt.Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)
	assert.Equal(t, []Kind{kindParent, kindChild}, st.Kinds())
	assert.Equal(t, "child asks, seed s1", res.Activities[0].Text)
	assert.Equal(t, 1, st.Stack[0].Step, "parent cursor advances past the begin step")

	res, err = rt.Continue(context.Background(), st, Inbound("abc"))
	require.NoError(t, err)
	assert.Equal(t, []Kind{kindParent}, st.Kinds())
	assert.Equal(t, []string{"Yep", "Nope"}, res.Activities[0].Choices)

	res, err = rt.Continue(context.Background(), st, Inbound("yep"))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.Equal(t, "s1:abc", res.Result.String())
}

func TestRuntimeChoiceByIndexAndRetry(t *testing.T) {
	rt := newTestRuntime(t)
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)
	_, err = rt.Continue(context.Background(), st, Inbound("abc"))
	require.NoError(t, err)

	res, err := rt.Continue(context.Background(), st, Inbound("maybe"))
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, res.Status)
	assert.Equal(t, "keep it?", res.Activities[0].Text)

	res, err = rt.Continue(context.Background(), st, Inbound("2"))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.False(t, res.Result.Present())
}

func TestRuntimeStateSurvivesSerialization(t *testing.T) {
	st := NewState("c1")
	_, err := newTestRuntime(t).Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)

	raw, err := json.Marshal(st)
	require.NoError(t, err)
	var restored State
	require.NoError(t, json.Unmarshal(raw, &restored))

	res, err := newTestRuntime(t).Continue(context.Background(), &restored, Inbound("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "keep it?", res.Activities[0].Text)
	assert.Equal(t, []Kind{kindParent}, restored.Kinds())

	var ps parentState
	require.NoError(t, json.Unmarshal(restored.Active().State, &ps))
	assert.Equal(t, "s1:xyz", ps.Got)
}

func TestRuntimeCancelUnwindsOneFrame(t *testing.T) {
	rt := newTestRuntime(t, WithInterceptors(KeywordInterceptor{
		HelpWords:   []string{"help", "?"},
		HelpText:    "help text",
		CancelWords: []string{"cancel", "quit"},
		CancelText:  "Cancelling...",
	}))
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)

	res, err := rt.Continue(context.Background(), st, Inbound("Cancel"))
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, res.Status)
	require.Len(t, res.Activities, 2)
	assert.Equal(t, "Cancelling...", res.Activities[0].Text)
	assert.Equal(t, "child gave nothing", res.Activities[1].Text)
	assert.Equal(t, []Kind{kindParent}, st.Kinds())

	var ps parentState
	require.NoError(t, json.Unmarshal(st.Active().State, &ps))
	assert.True(t, ps.Cancelled)

	res, err = rt.Continue(context.Background(), st, Inbound("quit"))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.True(t, res.Result.Cancelled())
	assert.True(t, st.Empty())
}

func TestRuntimeHelpKeepsWaiting(t *testing.T) {
	rt := newTestRuntime(t, WithInterceptors(KeywordInterceptor{
		HelpWords: []string{"help"},
		HelpText:  "help text",
	}))
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindEcho, nil, Activity{})
	require.NoError(t, err)
	before := *st.Active()

	res, err := rt.Continue(context.Background(), st, Inbound("HELP"))
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, res.Status)
	require.Len(t, res.Activities, 2)
	assert.Equal(t, "help text", res.Activities[0].Text)
	assert.Equal(t, "say something", res.Activities[1].Text)
	assert.Equal(t, before.Step, st.Active().Step)
	assert.NotNil(t, st.Active().Pending)
}

func TestRuntimeInterceptorScopedByKind(t *testing.T) {
	rt := newTestRuntime(t, WithInterceptors(KeywordInterceptor{
		CancelWords: []string{"cancel"},
		CancelText:  "Cancelling...",
		Kinds:       []Kind{kindChild},
	}))
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindEcho, nil, Activity{})
	require.NoError(t, err)

	res, err := rt.Continue(context.Background(), st, Inbound("cancel"))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.Equal(t, "cancel", res.Result.String())
}

func TestRuntimeContinueEmptyStack(t *testing.T) {
	rt := newTestRuntime(t)
	res, err := rt.Continue(context.Background(), NewState("c1"), Inbound("hi"))
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Empty(t, res.Activities)
}

func TestRuntimeUnknownDialog(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Begin(context.Background(), NewState("c1"), Kind("nope"), nil, Activity{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownDialog))
	var ude *UnknownDialogError
	require.True(t, errors.As(err, &ude))
	assert.Equal(t, Kind("nope"), ude.Kind)

	st := NewState("c1")
	st.Stack = append(st.Stack, Frame{ID: "f1", Kind: "ghost", Step: 1})
	_, err = rt.Continue(context.Background(), st, Inbound("hi"))
	assert.ErrorIs(t, err, ErrUnknownDialog)
}

func TestRuntimeValidators(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register(NewWaterfall(kindEcho,
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return Ask(TextPrompt("digits please").WithRetry("only digits").WithValidator("digits")), nil
		},
	)))

	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindEcho, nil, Activity{})
	require.NoError(t, err)

	_, err = rt.Continue(context.Background(), st, Inbound("123"))
	assert.ErrorIs(t, err, ErrUnknownValidator)

	rt.RegisterValidator("digits", ValidatorFunc(func(s string) bool {
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}))

	res, err := rt.Continue(context.Background(), st, Inbound("12a"))
	require.NoError(t, err)
	assert.Equal(t, "only digits", res.Activities[0].Text)

	res, err = rt.Continue(context.Background(), st, Inbound("123"))
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, res.Status)
	assert.Equal(t, "123", res.Result.String(), "running past the last step ends with the last value")
}

func TestRuntimeReplaceKeepsDepthBounded(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register(NewWaterfall(kindLoop,
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return Ask(TextPrompt("again?")), nil
		},
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return ReplaceDialog(kindLoop, nil), nil
		},
	)))
	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindLoop, nil, Activity{})
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		res, err := rt.Continue(context.Background(), st, Inbound("yes"))
		require.NoError(t, err)
		assert.Equal(t, StatusWaiting, res.Status)
		assert.Equal(t, 1, st.Depth())
	}
}

func TestRuntimeRunawayGuard(t *testing.T) {
	rt := NewRuntime(WithMaxActions(10))
	require.NoError(t, rt.Register(NewWaterfall(kindLoop,
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return ReplaceDialog(kindLoop, nil), nil
		},
	)))
	_, err := rt.Begin(context.Background(), NewState("c1"), kindLoop, nil, Activity{})
	assert.ErrorIs(t, err, ErrRunaway)
}

func TestRuntimeStepErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	rt := NewRuntime()
	require.NoError(t, rt.Register(NewWaterfall(kindEcho,
		func(ctx context.Context, sc *StepContext[struct{}]) (Action, error) {
			return Action{}, boom
		},
	)))
	_, err := rt.Begin(context.Background(), NewState("c1"), kindEcho, nil, Activity{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "echo step 0")
}

func TestRuntimeDuplicateRegistration(t *testing.T) {
	rt := NewRuntime()
	require.NoError(t, rt.Register(echoDialog()))
	assert.ErrorIs(t, rt.Register(echoDialog()), ErrDuplicateDialog)
}

func TestWaterfallOnEndReasons(t *testing.T) {
	var reasons []EndReason
	child := childDialog().OnEnd(func(ctx context.Context, t *Turn, s childState, reason EndReason) {
		reasons = append(reasons, reason)
	})
	rt := NewRuntime(WithInterceptors(KeywordInterceptor{CancelWords: []string{"cancel"}}))
	require.NoError(t, rt.Register(child, parentDialog()))

	st := NewState("c1")
	_, err := rt.Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)
	_, err = rt.Continue(context.Background(), st, Inbound("cancel"))
	require.NoError(t, err)

	st = NewState("c2")
	_, err = rt.Begin(context.Background(), st, kindParent, nil, Activity{})
	require.NoError(t, err)
	_, err = rt.Continue(context.Background(), st, Inbound("ok"))
	require.NoError(t, err)

	assert.Equal(t, []EndReason{EndCancelled, EndCompleted}, reasons)
}

func TestWaterfallRejectsMismatchedOptions(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.Begin(context.Background(), NewState("c1"), kindChild, 42, Activity{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin child")
}

func TestResultAs(t *testing.T) {
	v, ok := ResultAs[string](ValueResult("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	ptr := &childState{Seed: "p"}
	cs, ok := ResultAs[childState](ValueResult(ptr))
	assert.True(t, ok)
	assert.Equal(t, "p", cs.Seed)

	_, ok = ResultAs[int](ValueResult("x"))
	assert.False(t, ok)

	_, ok = ResultAs[string](NoResult())
	assert.False(t, ok)
	assert.False(t, ValueResult(nil).Present())
	assert.True(t, CancelledResult().Cancelled())
}

package dialog

import (
	"context"
	"strings"
)

// Interception is an interceptor's verdict on an inbound message.
type Interception int

const (
	// Pass hands the message to the active frame.
	Pass Interception = iota
	// Handled means the interceptor replied; the top frame stays suspended
	// and its pending prompt is sent again.
	Handled
	// Cancel ends the top frame with a cancelled result. Its parent, if any,
	// resumes with that result and decides how to branch.
	Cancel
)

// Interceptor sees every inbound message before the active frame.
type Interceptor interface {
	Intercept(ctx context.Context, t *Turn, st *State) Interception
}

// InterceptorFunc adapts a function into an Interceptor.
type InterceptorFunc func(ctx context.Context, t *Turn, st *State) Interception

func (fn InterceptorFunc) Intercept(ctx context.Context, t *Turn, st *State) Interception {
	return fn(ctx, t, st)
}

// KeywordInterceptor answers help keywords and cancels on cancel keywords.
// Matching is exact after trimming and lower-casing the message.
// When Kinds is non-empty only frames of those kinds are intercepted.
type KeywordInterceptor struct {
	HelpWords   []string
	HelpText    string
	CancelWords []string
	CancelText  string
	Kinds       []Kind
}

func (k KeywordInterceptor) Intercept(_ context.Context, t *Turn, st *State) Interception {
	top := st.Active()
	if top == nil || !k.applies(top.Kind) {
		return Pass
	}
	text := strings.ToLower(strings.TrimSpace(t.Inbound.Text))
	if text == "" {
		return Pass
	}
	for _, w := range k.HelpWords {
		if text == w {
			t.Send(Message(k.HelpText))
			return Handled
		}
	}
	for _, w := range k.CancelWords {
		if text == w {
			t.Send(Message(k.CancelText))
			return Cancel
		}
	}
	return Pass
}

func (k KeywordInterceptor) applies(kind Kind) bool {
	if len(k.Kinds) == 0 {
		return true
	}
	for _, candidate := range k.Kinds {
		if candidate == kind {
			return true
		}
	}
	return false
}

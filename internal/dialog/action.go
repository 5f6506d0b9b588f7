package dialog

type actionKind int

const (
	actionPrompt actionKind = iota + 1
	actionNext
	actionBegin
	actionEnd
	actionReplace
)

func (k actionKind) String() string {
	switch k {
	case actionPrompt:
		return "prompt"
	case actionNext:
		return "next"
	case actionBegin:
		return "begin"
	case actionEnd:
		return "end"
	case actionReplace:
		return "replace"
	}
	return "unknown"
}

// Action is what a dialog asks the runtime to do after running a step.
// Build one with Ask, Next, BeginDialog, EndDialog or ReplaceDialog.
type Action struct {
	kind    actionKind
	prompt  Prompt
	result  Result
	child   Kind
	options any
}

// Ask suspends the frame on p until the next inbound message.
func Ask(p Prompt) Action {
	return Action{kind: actionPrompt, prompt: p}
}

// Next advances to the following step, handing it v. A nil v is absent.
func Next(v any) Action {
	return Action{kind: actionNext, result: ValueResult(v)}
}

// BeginDialog pushes a child frame. The parent resumes at its next step
// with whatever the child ends with.
func BeginDialog(kind Kind, options any) Action {
	return Action{kind: actionBegin, child: kind, options: options}
}

// EndDialog pops the frame and returns v to the parent. A nil v is absent.
func EndDialog(v any) Action {
	return Action{kind: actionEnd, result: ValueResult(v)}
}

// EndWith pops the frame returning an already built Result.
func EndWith(r Result) Action {
	return Action{kind: actionEnd, result: r}
}

// ReplaceDialog pops the frame and pushes kind in its place. The parent,
// if any, is not resumed; the replacement's result goes to it instead.
func ReplaceDialog(kind Kind, options any) Action {
	return Action{kind: actionReplace, child: kind, options: options}
}

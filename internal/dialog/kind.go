package dialog

import (
	"errors"
	"fmt"
)

// Kind identifies a registered dialog implementation.
type Kind string

func (k Kind) String() string { return string(k) }

var (
	// ErrUnknownDialog is returned when a frame or begin request names a kind
	// that was never registered with the runtime.
	ErrUnknownDialog = errors.New("dialog: unknown dialog")
	// ErrUnknownValidator is returned when a pending prompt names a validator
	// the runtime does not know.
	ErrUnknownValidator = errors.New("dialog: unknown prompt validator")
	// ErrRunaway is returned when a single turn exceeds the action budget.
	ErrRunaway = errors.New("dialog: turn exceeded action budget")
	// ErrNilState is returned when a runtime call receives no state.
	ErrNilState = errors.New("dialog: state is required")
)

// UnknownDialogError reports the kind that could not be resolved.
type UnknownDialogError struct {
	Kind Kind
}

func (e *UnknownDialogError) Error() string {
	return fmt.Sprintf("dialog: unknown dialog %q", string(e.Kind))
}

// Is lets errors.Is(err, ErrUnknownDialog) match.
func (e *UnknownDialogError) Is(target error) bool {
	return target == ErrUnknownDialog
}

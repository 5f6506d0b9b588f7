package recognizer

import (
	"context"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// Fallback tries primary first and falls back when it fails.
type Fallback struct {
	primary  Recognizer
	fallback Recognizer
	logger   *logging.Logger
}

// NewFallback chains recognizers. A nil fallback makes it a passthrough.
func NewFallback(primary, fallback Recognizer, logger *logging.Logger) *Fallback {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fallback{primary: primary, fallback: fallback, logger: logger}
}

func (f *Fallback) Configured() bool {
	return f.primary.Configured() || (f.fallback != nil && f.fallback.Configured())
}

func (f *Fallback) Recognize(ctx context.Context, req Request) (Result, error) {
	res, err := f.primary.Recognize(ctx, req)
	if err == nil {
		return res, nil
	}
	f.logger.Warn("primary recognizer failed, attempting fallback",
		"conversation_id", req.ConversationID,
		"error", err.Error(),
		"fallback_available", f.fallback != nil,
	)
	if f.fallback == nil {
		return res, err
	}
	fres, ferr := f.fallback.Recognize(ctx, req)
	if ferr != nil {
		f.logger.Error("fallback recognizer also failed",
			"primary_error", err.Error(),
			"fallback_error", ferr.Error(),
		)
		return fres, ferr
	}
	return fres, nil
}

// Observer counts recognition calls.
type Observer interface {
	ObserveRecognition(provider, status string)
}

// Observed reports every call of next to an Observer.
type Observed struct {
	next     Recognizer
	provider string
	observer Observer
}

func NewObserved(next Recognizer, provider string, observer Observer) *Observed {
	return &Observed{next: next, provider: provider, observer: observer}
}

func (o *Observed) Configured() bool { return o.next.Configured() }

func (o *Observed) Recognize(ctx context.Context, req Request) (Result, error) {
	res, err := o.next.Recognize(ctx, req)
	if o.observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.observer.ObserveRecognition(o.provider, status)
	}
	return res, err
}

// Package bot drives FlyMeBot conversations: it owns the dialog runtime with
// the main menu and booking dialogs registered, and runs one turn per
// inbound message against the persisted dialog stack.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/flymebot/internal/booking"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// TurnObserver records turn metrics.
type TurnObserver interface {
	ObserveTurn(outcome string, seconds float64)
	ObservePrompt(dialog string)
}

// Options configure a Bot.
type Options struct {
	Store            conversation.StateStore
	Transcript       *conversation.TranscriptStore
	Metrics          TurnObserver
	Main             Deps
	ComplimentChance float64
	MaxActions       int
	Clock            func() time.Time
	Logger           *logging.Logger
}

// Bot implements conversation.Service.
type Bot struct {
	runtime    *dialog.Runtime
	store      conversation.StateStore
	transcript *conversation.TranscriptStore
	metrics    TurnObserver
	clock      func() time.Time
	logger     *logging.Logger
}

var (
	_ conversation.Service  = (*Bot)(nil)
	_ conversation.Resetter = (*Bot)(nil)
)

// New registers every dialog and returns a ready Bot.
func New(opts Options) (*Bot, error) {
	if opts.Store == nil {
		return nil, errors.New("bot: state store is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.Main.Logger = opts.Logger
	mainDeps := opts.Main.withDefaults()

	rtOpts := []dialog.Option{
		dialog.WithLogger(opts.Logger),
		dialog.WithClock(opts.Clock),
		dialog.WithInterceptors(NewInterceptor()),
	}
	if opts.MaxActions > 0 {
		rtOpts = append(rtOpts, dialog.WithMaxActions(opts.MaxActions))
	}
	rt := dialog.NewRuntime(rtOpts...)

	if err := rt.Register(NewMainDialog(mainDeps)); err != nil {
		return nil, fmt.Errorf("bot: register main dialog: %w", err)
	}
	if err := booking.Register(rt, booking.Deps{
		Variants:         mainDeps.Variants,
		Telemetry:        mainDeps.Telemetry,
		ComplimentChance: opts.ComplimentChance,
		Clock:            opts.Clock,
		Logger:           opts.Logger,
	}); err != nil {
		return nil, fmt.Errorf("bot: register booking dialogs: %w", err)
	}

	return &Bot{
		runtime:    rt,
		store:      opts.Store,
		transcript: opts.Transcript,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}, nil
}

// ProcessMessage runs one turn. Turns of the same conversation are
// serialised through the store lock. When nothing is active, or the stack
// emptied during the turn, the main dialog is started so every turn ends
// waiting for the user.
func (b *Bot) ProcessMessage(ctx context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	if req.ConversationID == "" {
		return nil, errors.New("bot: conversation id is required")
	}
	started := b.clock()
	logger := b.logger.With("conversation_id", req.ConversationID)

	unlock, err := b.store.Lock(ctx, req.ConversationID)
	if err != nil {
		b.observe("lock_error", started)
		return nil, fmt.Errorf("bot: lock conversation: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release conversation lock", "error", err)
		}
	}()

	st, err := b.store.Load(ctx, req.ConversationID)
	if err != nil {
		b.observe("error", started)
		return nil, fmt.Errorf("bot: load state: %w", err)
	}

	in := dialog.Inbound(req.Text)
	res, err := b.turn(ctx, st, in)
	if err != nil {
		b.observe("error", started)
		var unknown *dialog.UnknownDialogError
		if errors.As(err, &unknown) {
			logger.Error("dropping dialog state with unknown dialog", "kind", string(unknown.Kind))
			if delErr := b.store.Delete(ctx, req.ConversationID); delErr != nil {
				logger.Error("failed to drop dialog state", "error", delErr)
			}
		}
		return nil, err
	}

	if err := b.store.Save(ctx, st); err != nil {
		b.observe("error", started)
		return nil, fmt.Errorf("bot: save state: %w", err)
	}

	if top := st.Active(); top != nil && top.Pending != nil && b.metrics != nil {
		b.metrics.ObservePrompt(string(top.Kind))
	}
	b.observe(string(res.Status), started)
	b.record(ctx, req, res.Activities)

	logger.Debug("conversation turn complete",
		"status", string(res.Status),
		"depth", st.Depth(),
		"activities", len(res.Activities),
	)
	return &conversation.Response{
		ConversationID: req.ConversationID,
		Status:         res.Status,
		Activities:     res.Activities,
		Timestamp:      b.clock().UTC(),
	}, nil
}

func (b *Bot) turn(ctx context.Context, st *dialog.State, in dialog.Activity) (*dialog.TurnResult, error) {
	res, err := b.runtime.Continue(ctx, st, in)
	if err != nil {
		return nil, err
	}
	if res.Status == dialog.StatusWaiting {
		return res, nil
	}
	restart, err := b.runtime.Begin(ctx, st, KindMain, MainState{}, in)
	if err != nil {
		return nil, err
	}
	restart.Activities = append(res.Activities, restart.Activities...)
	return restart, nil
}

// Reset drops the conversation's dialog stack and transcript.
func (b *Bot) Reset(ctx context.Context, conversationID string) error {
	if err := b.store.Delete(ctx, conversationID); err != nil {
		return err
	}
	return b.transcript.Delete(ctx, conversationID)
}

// State returns the persisted dialog stack, for inspection.
func (b *Bot) State(ctx context.Context, conversationID string) (*dialog.State, error) {
	return b.store.Load(ctx, conversationID)
}

func (b *Bot) observe(outcome string, started time.Time) {
	if b.metrics != nil {
		b.metrics.ObserveTurn(outcome, b.clock().Sub(started).Seconds())
	}
}

func (b *Bot) record(ctx context.Context, req conversation.MessageRequest, acts []dialog.Activity) {
	if b.transcript == nil {
		return
	}
	now := b.clock().UTC()
	msgs := []conversation.TranscriptMessage{{Role: conversation.RoleUser, Text: req.Text, Channel: req.Channel, Timestamp: now}}
	for _, a := range acts {
		if a.Type != dialog.ActivityMessage {
			continue
		}
		msg := conversation.TranscriptMessage{Role: conversation.RoleBot, Text: a.Text, Channel: req.Channel, Timestamp: now}
		if len(a.Attachments) > 0 {
			msg.Kind = "card"
			msg.Text = string(a.Attachments[0].Content)
		}
		msgs = append(msgs, msg)
	}
	if err := b.transcript.Append(ctx, req.ConversationID, msgs...); err != nil {
		b.logger.Warn("failed to append transcript", "conversation_id", req.ConversationID, "error", err)
	}
}

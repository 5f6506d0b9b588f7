package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/flymebot/internal/bot"
	"github.com/wolfman30/flymebot/internal/cards"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/recognizer"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/internal/variants"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// BuildStateStore returns the Redis dialog store, or an in-process store
// when Redis is disabled.
func BuildStateStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) conversation.StateStore {
	opts := []conversation.StoreOption{
		conversation.WithStateTTL(cfg.DialogStateTTL),
		conversation.WithLockTTL(cfg.DialogLockTTL),
		conversation.WithLockWait(cfg.DialogLockWait),
	}
	if redisClient == nil {
		if logger != nil {
			logger.Warn("dialog state kept in memory; conversations do not survive restarts")
		}
		return conversation.NewMemoryStateStore(opts...)
	}
	return conversation.NewRedisStateStore(redisClient, opts...)
}

// BuildCardTemplate loads the booking card from CARD_TEMPLATE_PATH, falling
// back to the embedded template.
func BuildCardTemplate(cfg *appconfig.Config) (*cards.Template, error) {
	path := strings.TrimSpace(cfg.CardTemplatePath)
	if path == "" {
		return cards.BookedFlight(), nil
	}
	tmpl, err := cards.Load(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load card template: %w", err)
	}
	return tmpl, nil
}

// BotParams are the collaborators of a Bot built from config.
type BotParams struct {
	Store      conversation.StateStore
	Transcript *conversation.TranscriptStore
	Recognizer recognizer.Recognizer
	Telemetry  telemetry.Sink
	Metrics    bot.TurnObserver
	Logger     *logging.Logger
}

// BuildBot wires the dialog runtime.
func BuildBot(cfg *appconfig.Config, p BotParams) (*bot.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	card, err := BuildCardTemplate(cfg)
	if err != nil {
		return nil, err
	}
	return bot.New(bot.Options{
		Store:      p.Store,
		Transcript: p.Transcript,
		Metrics:    p.Metrics,
		Main: bot.Deps{
			Recognizer: p.Recognizer,
			Variants:   variants.NewRandom(cfg.VariantSeed),
			Telemetry:  p.Telemetry,
			Card:       card,
			JokeChance: cfg.JokeChance,
		},
		ComplimentChance: cfg.ComplimentChance,
		Logger:           p.Logger,
	})
}

// JobStore records async job status.
type JobStore interface {
	conversation.JobRecorder
	conversation.JobUpdater
}

// Pipeline is the async side of the conversation API.
type Pipeline struct {
	Publisher *conversation.Publisher
	Jobs      JobStore
	// Worker is nil when turns are processed by a separate worker binary.
	Worker *conversation.Worker
	Queue  string
}

// PipelineParams configure BuildPipeline.
type PipelineParams struct {
	Service   conversation.Service
	Resetter  conversation.Resetter
	Messenger conversation.ReplyMessenger
	// RunWorker starts consuming the SQS queue in this process. The memory
	// queue always runs an inline worker.
	RunWorker bool
	Logger    *logging.Logger
}

// BuildPipeline wires the queue, job store and optional worker. The worker
// is started with ctx.
func BuildPipeline(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, p PipelineParams) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var jobs JobStore
	if cfg.UseMemoryQueue || strings.TrimSpace(cfg.ConversationJobsTable) == "" {
		jobs = conversation.NewMemoryJobStore()
	} else {
		jobs = conversation.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.ConversationJobsTable, logger)
	}

	workerOpts := []conversation.WorkerOption{conversation.WithWorkerCount(cfg.WorkerCount)}
	if p.Resetter != nil {
		workerOpts = append(workerOpts, conversation.WithResetter(p.Resetter))
	}

	if (cfg.UseMemoryQueue || p.RunWorker) && p.Service == nil {
		return nil, fmt.Errorf("bootstrap: worker requires a conversation service")
	}

	out := &Pipeline{Jobs: jobs}
	if cfg.UseMemoryQueue {
		q := conversation.NewMemoryQueue(256)
		out.Publisher = conversation.NewPublisher(q, logger)
		out.Worker = conversation.NewWorker(p.Service, q, jobs, p.Messenger, logger, workerOpts...)
		out.Queue = "memory"
	} else {
		if strings.TrimSpace(cfg.ConversationQueueURL) == "" {
			return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL is required unless USE_MEMORY_QUEUE is set")
		}
		q := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
		out.Publisher = conversation.NewPublisher(q, logger)
		if p.RunWorker {
			out.Worker = conversation.NewWorker(p.Service, q, jobs, p.Messenger, logger, workerOpts...)
		}
		out.Queue = "sqs"
	}

	if out.Worker != nil {
		out.Worker.Start(ctx)
		logger.Info("conversation worker started", "queue", out.Queue, "workers", cfg.WorkerCount)
	}
	return out, nil
}

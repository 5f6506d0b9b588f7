package bootstrap

import (
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/recognizer"
	"github.com/wolfman30/flymebot/pkg/logging"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// BuildRecognizer selects the intent recognizer named by RECOGNIZER_PROVIDER.
// LLM providers fall back to the pattern recognizer when RecognizerFallback
// is set. An unknown or incomplete provider yields an unconfigured
// recognizer so the bot runs its degraded path. The returned Closer releases
// provider clients.
func BuildRecognizer(ctx context.Context, cfg *appconfig.Config, observer recognizer.Observer, logger *logging.Logger) (recognizer.Recognizer, io.Closer, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if !cfg.RecognizerConfigured() {
		logger.Warn("no intent recognizer configured; booking starts without entities", "provider", cfg.RecognizerProvider)
		return recognizer.Unconfigured{}, nopCloser{}, nil
	}

	var (
		llm    recognizer.Recognizer
		closer io.Closer = nopCloser{}
	)
	switch cfg.RecognizerProvider {
	case "pattern":
		logger.Info("using pattern recognizer")
		return recognizer.NewObserved(recognizer.NewPattern(), "pattern", observer), closer, nil
	case "gemini":
		client, err := recognizer.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini recognizer: %w", err)
		}
		llm = recognizer.NewLLM(client, cfg.GeminiModelID)
		closer = client
	case "bedrock":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client := recognizer.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		llm = recognizer.NewLLM(client, cfg.BedrockModelID)
	}

	observed := recognizer.NewObserved(llm, cfg.RecognizerProvider, observer)
	logger.Info("using LLM recognizer", "provider", cfg.RecognizerProvider, "fallback", cfg.RecognizerFallback)
	if !cfg.RecognizerFallback {
		return observed, closer, nil
	}
	fallback := recognizer.NewObserved(recognizer.NewPattern(), "pattern", observer)
	return recognizer.NewFallback(observed, fallback, logger), closer, nil
}

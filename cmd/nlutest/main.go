package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/flymebot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/recognizer"
	"github.com/wolfman30/flymebot/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	provider := flag.String("recognizer", "", "override RECOGNIZER_PROVIDER")
	today := flag.String("today", "", "reference date for relative expressions (YYYY-MM-DD)")
	timeout := flag.Duration("timeout", 30*time.Second, "recognition timeout")
	flag.Parse()

	utterance := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if utterance == "" {
		fmt.Fprintln(os.Stderr, `usage: nlutest [-recognizer pattern|gemini|bedrock] "book a flight from Paris to Berlin"`)
		os.Exit(2)
	}

	cfg := appconfig.Load()
	if *provider != "" {
		cfg.RecognizerProvider = strings.ToLower(*provider)
	}
	now, err := referenceDate(*today)
	if err != nil {
		log.Fatalf("invalid -today: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logger := logging.NewWithWriter("warn", os.Stderr)
	rec, closer, err := bootstrap.BuildRecognizer(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("recognizer: %v", err)
	}
	defer func() { _ = closer.Close() }()

	start := time.Now()
	res, err := rec.Recognize(ctx, recognizer.Request{Utterance: utterance, Now: now})
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("recognize (%s, %v): %v", cfg.RecognizerProvider, elapsed.Round(time.Millisecond), err)
	}

	out, err := report(cfg.RecognizerProvider, utterance, res, elapsed)
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(out)
}

func referenceDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", raw)
}

type summary struct {
	Provider   string              `json:"provider"`
	Utterance  string              `json:"utterance"`
	Intent     recognizer.Intent   `json:"intent"`
	BookFlight bool                `json:"book_flight"`
	Entities   recognizer.Entities `json:"entities"`
	ElapsedMS  int64               `json:"elapsed_ms"`
}

func report(provider, utterance string, res recognizer.Result, elapsed time.Duration) (string, error) {
	b, err := json.MarshalIndent(summary{
		Provider:   provider,
		Utterance:  utterance,
		Intent:     res.Intent,
		BookFlight: res.BookFlight(),
		Entities:   res.Entities,
		ElapsedMS:  elapsed.Milliseconds(),
	}, "", "  ")
	return string(b), err
}

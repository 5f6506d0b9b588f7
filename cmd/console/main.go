package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/flymebot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	provider := flag.String("recognizer", "", "override RECOGNIZER_PROVIDER (pattern, gemini, bedrock, none)")
	fast := flag.Bool("fast", false, "skip typing delays")
	verbose := flag.Bool("v", false, "log telemetry events to stderr")
	flag.Parse()

	cfg := appconfig.Load()
	cfg.UseMemoryStore = true
	if *provider != "" {
		cfg.RecognizerProvider = strings.ToLower(*provider)
	}

	level := "error"
	if *verbose {
		level = "info"
	}
	logger := logging.NewWithWriter(level, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, closer, err := bootstrap.BuildRecognizer(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("recognizer: %v", err)
	}
	defer func() { _ = closer.Close() }()

	b, err := bootstrap.BuildBot(cfg, bootstrap.BotParams{
		Store:      bootstrap.BuildStateStore(cfg, nil, nil),
		Recognizer: rec,
		Telemetry:  telemetry.NewLogSink(logger),
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	s := &session{
		service: b,
		id:      "console:" + uuid.NewString(),
		out:     os.Stdout,
		sleep:   time.Sleep,
	}
	if *fast {
		s.sleep = func(time.Duration) {}
	}
	if err := s.run(ctx, os.Stdin); err != nil {
		log.Fatalf("console: %v", err)
	}
}

// session is one interactive conversation on a terminal.
type session struct {
	service conversation.Service
	id      string
	out     io.Writer
	sleep   func(time.Duration)
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "FlyMeBot console. Type a message, or /quit to exit.")
	// The first turn greets the user before they type anything.
	if err := s.send(ctx, ""); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := s.send(ctx, line); err != nil {
			return err
		}
	}
}

func (s *session) send(ctx context.Context, text string) error {
	resp, err := s.service.ProcessMessage(ctx, conversation.MessageRequest{
		ConversationID: s.id,
		Text:           text,
		Channel:        conversation.ChannelConsole,
	})
	if err != nil {
		return err
	}
	render(s.out, resp, s.sleep)
	return nil
}

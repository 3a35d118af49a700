package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"assistant-bot/internal/assistant"
	"assistant-bot/internal/bridge"
	"assistant-bot/internal/cli"
	"assistant-bot/internal/config"
	"assistant-bot/internal/goldprice"
	"assistant-bot/internal/scheduler"
	"assistant-bot/internal/search"
	"assistant-bot/internal/session"
	"assistant-bot/internal/telegram"
	"assistant-bot/internal/tools"
	"assistant-bot/internal/weather"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	engine := assistant.NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AssistantID)

	dispatcher := tools.New(
		weather.New(cfg.WeatherAPIKey),
		search.New(cfg.TavilyAPIKey, cfg.SearchDefaultDomain),
		goldprice.New(),
	)

	runner := assistant.NewService(engine, dispatcher, cfg.PollInterval, cfg.RunTimeout)
	registry := session.NewRegistry(engine)
	br := bridge.New(registry, engine, runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := scheduler.New(registry, cfg.SessionMaxIdle)
	if err := sweep.Start(cfg.SessionSweepCron); err != nil {
		log.Fatalf("failed to schedule session sweep: %v", err)
	}
	defer sweep.Stop()

	if cfg.TelegramBotToken == "" && !cfg.CLIEnabled {
		log.Fatalf("no front-end enabled: set TELEGRAM_BOT_TOKEN or CLI_ENABLED=true")
	}

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.New(cfg.TelegramBotToken, br)
		if err != nil {
			log.Fatalf("failed to create telegram bot: %v", err)
		}
		go bot.Start(ctx)
	} else {
		log.Printf("TELEGRAM_BOT_TOKEN not set, telegram bot will not start")
	}

	if cfg.CLIEnabled {
		go func() {
			// A finished console session shuts the whole process down,
			// mirroring Ctrl-D / "exit" expectations.
			defer stop()
			if err := cli.New(br).Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("console chat ended with error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Printf("shutting down")
}

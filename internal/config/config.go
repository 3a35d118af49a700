package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Assistant engine
	OpenAIAPIKey  string `env:"OPENAI_API_KEY,required"`
	AssistantID   string `env:"ASSISTANT_ID,required"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// Run orchestration
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	RunTimeout   time.Duration `env:"RUN_TIMEOUT" envDefault:"5m"`

	// Front-ends
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	CLIEnabled       bool   `env:"CLI_ENABLED" envDefault:"true"`

	// Tool providers
	WeatherAPIKey       string `env:"WEATHER_API_KEY"`
	TavilyAPIKey        string `env:"TAVILY_API_KEY"`
	SearchDefaultDomain string `env:"SEARCH_DEFAULT_DOMAIN" envDefault:"https://giavang.pnj.com.vn/"`

	// Sessions
	SessionMaxIdle   time.Duration `env:"SESSION_MAX_IDLE" envDefault:"24h"`
	SessionSweepCron string        `env:"SESSION_SWEEP_CRON" envDefault:"@hourly"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Package config loads server configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the lotto server.
type Config struct {
	ListenAddr      string        `env:"LOTTO_LISTEN_ADDR" envDefault:":8080"`
	DrawInterval    time.Duration `env:"LOTTO_DRAW_INTERVAL" envDefault:"30m"`
	CountdownTick   time.Duration `env:"LOTTO_COUNTDOWN_TICK" envDefault:"1s"`
	StartingBalance int           `env:"LOTTO_STARTING_BALANCE" envDefault:"1000"`
	MaxTickets      int           `env:"LOTTO_MAX_TICKETS" envDefault:"50"`
	HistorySize     int           `env:"LOTTO_HISTORY_SIZE" envDefault:"100"`
	RedisAddr       string        `env:"LOTTO_REDIS_ADDR"`
	LogLevel        string        `env:"LOTTO_LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file, then parses the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

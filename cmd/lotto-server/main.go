package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/twsarcade/lotto/internal/cache"
	"github.com/twsarcade/lotto/internal/config"
	"github.com/twsarcade/lotto/internal/game"
	"github.com/twsarcade/lotto/internal/gateway"
	"github.com/twsarcade/lotto/internal/httpapi"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if cfg.RedisAddr != "" {
		if err := cache.InitRedis(cfg.RedisAddr); err != nil {
			log.Fatalf("failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		log.WithField("addr", cfg.RedisAddr).Info("round archiving enabled")
	}

	directory := game.NewDirectory(cfg.StartingBalance, cfg.MaxTickets)
	history := game.NewHistory(cfg.HistorySize)
	manager := game.NewManager(directory, history, game.Options{
		DrawInterval:  cfg.DrawInterval,
		CountdownTick: cfg.CountdownTick,
		Logger:        log,
	})
	gw := gateway.New(manager, log)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(manager, gw, log)

	log.WithField("addr", cfg.ListenAddr).Info("TWS Lotto server starting")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

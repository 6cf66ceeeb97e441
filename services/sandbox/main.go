package main

import (
	"github.com/ashendes/neurophoto-storefront/internal/config"
	"github.com/ashendes/neurophoto-storefront/internal/logging"
	"github.com/ashendes/neurophoto-storefront/internal/sandbox"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	logging.Setup(cfg.Log)

	if cfg.Environment.Name == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := sandbox.New(sandbox.Options{
		OrdersPrefix: cfg.API.OrdersPrefix,
		BotToken:     cfg.Telegram.BotToken,
		AutoPayAfter: cfg.Sandbox.AutoPayAfter,
		AccessLog:    true,
	})
	router := server.Router()

	log.WithFields(log.Fields{
		"addr":           cfg.Sandbox.Addr(),
		"orders_prefix":  cfg.API.OrdersPrefix,
		"auto_pay_after": cfg.Sandbox.AutoPayAfter,
		"verify_init":    cfg.Telegram.BotToken != "",
	}).Info("Sandbox backend starting")
	if err := router.Run(cfg.Sandbox.Addr()); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

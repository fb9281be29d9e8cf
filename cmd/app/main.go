package main

import (
	"github.com/LerianStudio/payment-engine/internal/bootstrap"
	"github.com/LerianStudio/payment-engine/pkg/env"
	"github.com/LerianStudio/payment-engine/pkg/log"
)

func main() {
	env.InitLocalEnvConfig()

	// Startup failures happen before the structured logger exists, so they
	// go through the plain fallback logger.
	fallback := &log.GoLogger{Level: log.InfoLevel}

	cfg, err := bootstrap.NewConfig()
	if err != nil {
		fallback.Fatalf("configuration error: %v", err)
	}

	manager, err := bootstrap.InitServer(cfg)
	if err != nil {
		fallback.Fatalf("startup error: %v", err)
	}

	manager.StartWithGracefulShutdown()
}

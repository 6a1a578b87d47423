package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"newscard-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	codec, err := core.NewTokenCodec(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		log.Fatalf("failed to build token codec: %v", err)
	}

	userRepo := core.NewPgUserRepository(db)
	newsRepo := core.NewPgNewsRepository(db)
	authService := core.NewRepositoryAuthService(userRepo)
	views := core.NewViewCounter(redisClient)
	metrics := core.NewMetricsService(redisClient)

	if err := core.BootstrapSuperuser(ctx, userRepo, cfg); err != nil {
		log.Fatalf("bootstrap superuser failed: %v", err)
	}

	router := core.NewRouter(cfg, authService, codec, userRepo, newsRepo, views, metrics)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

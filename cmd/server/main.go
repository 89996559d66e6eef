package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/internal/invservice"
)

func main() {
	log.Println("Starting farmsync inventory service...")

	memory := flag.Bool("memory", false, "use the in-memory record store instead of Redis")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/farmsync.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded from %s", configPath)

	var store invservice.RecordStore
	if *memory {
		log.Println("Using in-memory record store")
		store = invservice.NewMemStore()
	} else {
		redisStore, err := invservice.NewRedisStore(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		log.Printf("Connected to Redis at %s", cfg.Redis.Address)
		store = redisStore
	}

	srv := invservice.New(cfg, store)

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port)
		log.Printf("Inventory service listening on %s", addr)
		if err := srv.Start(addr); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Fatalf("Service error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	if err := srv.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Service stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayu-dev/starboard/internal/biz/usecase"
	"github.com/ayu-dev/starboard/internal/conf"
	"github.com/ayu-dev/starboard/internal/data"
	"github.com/ayu-dev/starboard/internal/infra/discord"
	"github.com/ayu-dev/starboard/internal/server"
	"github.com/ayu-dev/starboard/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize Discord client and learn the bot's own identity
	discordClient := discord.NewClient(cfg.Discord.Token)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := discordClient.Connect(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to connect to Discord: %v", err)
	}
	cancel()

	// Initialize repository layer
	repos, err := data.NewRepositories(discordClient, cfg.Board.DBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Board.Close()

	fmt.Printf("[Starboard] Board DB: %s\n", cfg.Board.DBPath)

	// Initialize usecase layer
	resolver, err := usecase.NewMessageResolver(repos.Platform, cfg.Board.ResolverCacheSize)
	if err != nil {
		log.Fatalf("Failed to create message resolver: %v", err)
	}
	starUC := usecase.NewStarUsecase(repos.Board, repos.Platform, resolver, cfg.Board.MaxStarAge, discordClient.BotUser().ID)

	// Initialize service layer
	starSvc := service.NewStarboardService(starUC, repos.Platform)

	// Rotation commands are optional: they need the static dataset
	var rotationSvc *service.RotationService
	if cfg.Rotation.DataPath != "" {
		rotationData, err := data.LoadRotationData(cfg.Rotation.DataPath)
		if err != nil {
			log.Fatalf("Failed to load rotation data: %v", err)
		}
		rotationUC := usecase.NewRotationUsecase(rotationData.Weapons, rotationData.Brands, rotationData.Stages, time.Now().UnixNano())
		rotationSvc = service.NewRotationService(rotationUC, repos.Platform, cfg.Rotation.ScheduleURL)
		fmt.Printf("[Starboard] Rotation commands enabled (%d stages, %d weapons, %d brands)\n",
			len(rotationData.Stages), len(rotationData.Weapons), len(rotationData.Brands))
	}

	// Initialize server
	srv := server.NewGatewayServer(discordClient, starSvc, rotationSvc, cfg.Discord.CommandPrefix)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
	}()

	fmt.Printf("Starting starboard (max star age %v)...\n", cfg.Board.MaxStarAge)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

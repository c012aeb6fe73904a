package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"angelamos-operations/internal/bootstrap"
	"angelamos-operations/internal/config"
	"angelamos-operations/internal/server"
	"angelamos-operations/internal/tracer"
	pktNats "angelamos-operations/pkg/nats"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.WebSocketHub.Run(ctx)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.NatsSubscriber != nil {
		// One durable consumer per instance so every instance sees every event.
		consumerName := "studio-" + container.WebSocketHub.Origin()
		if err := container.NatsSubscriber.Subscribe(pktNats.SubjectPrefix+">", consumerName, container.WorkflowService.HandleEvent); err != nil {
			log.Printf("[WARN] Failed to subscribe to workflow events: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

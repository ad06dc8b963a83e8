package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copp1723/vinny-sub002/internal/infrastructure/env"
	"github.com/copp1723/vinny-sub002/internal/relay"
)

func main() {
	envService := env.NewEnvService()

	port := envService.Get("PORT")
	if port == "" {
		port = "8080"
	}
	ttl := envService.GetDuration("OTP_TTL", 10*time.Minute)

	store := relay.NewStore(ttl)
	store.StartSweeper()
	defer store.Close()

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           relay.NewServer(store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("OTP relay listening on :%s (TTL %s)", port, ttl)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

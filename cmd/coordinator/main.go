package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/warren/internal/coordinator"
)

const defaultListenAddr = ":8089"

func main() {
	// 1. Load environment variables
	listenAddr := os.Getenv("WARREN_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}

	// 2. Optional sweep interval override (seconds, 0 disables)
	sweepInterval := time.Minute
	if raw := os.Getenv("WARREN_SWEEP_INTERVAL_SECONDS"); raw != "" {
		var seconds int
		if _, err := fmt.Sscanf(raw, "%d", &seconds); err != nil || seconds < 0 {
			fmt.Fprintf(os.Stderr, "Error: Invalid WARREN_SWEEP_INTERVAL_SECONDS: %s\n", raw)
			os.Exit(1)
		}
		sweepInterval = time.Duration(seconds) * time.Second
	}

	// 3. Create coordinator and server
	server := coordinator.NewServer(coordinator.New(), listenAddr)
	server.SweepInterval = sweepInterval

	fmt.Printf("Lease coordinator starting on %s\n", listenAddr)

	// 4. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// 5. Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(runCtx)
	}()

	// 6. Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Coordinator error: %v\n", runErr)
			os.Exit(1)
		}
	}

	fmt.Println("Coordinator stopped")
}

// cmd/worker/startup.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"cashfree-gateway/pkg/container"
)

// startServices performs health checks and starts the health endpoint
func startServices(c *container.Container) error {
	log.Println("============================================")
	log.Println("Payment Worker Starting...")
	log.Println("============================================")

	checks := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"Database Connection", c.DB.HealthCheck},
		{"Redis Connection", c.Cache.Ping},
	}

	for _, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := check.fn(ctx)
		cancel()

		if err != nil {
			log.Printf("Check failed - %s: %v", check.name, err)
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		log.Printf("Check OK - %s", check.name)
	}

	// Health check endpoint for the orchestrator
	go startHealthCheckServer()

	return nil
}

// startHealthCheckServer starts HTTP server for health checks
func startHealthCheckServer() {
	http.HandleFunc("/health", healthCheckHandler)
	http.HandleFunc("/ready", readyCheckHandler)

	log.Println("[Health] Starting health check server on :9999")
	if err := http.ListenAndServe(":9999", nil); err != nil {
		log.Printf("[Health] Failed to start: %v", err)
	}
}

// healthCheckHandler handles /health endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"UP","service":"payment-worker"}`))
}

// readyCheckHandler handles /ready endpoint (Kubernetes readiness probe)
func readyCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"READY"}`))
}

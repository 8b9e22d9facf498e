package main

import (
	"context"
	"log"

	"pressroom/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
//
//	@title			Pressroom API
//	@version		0.1
//	@description	Community board, votes and editorial publication workflow.
//	@BasePath		/
func main() {
	log.Println("pressroom api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("pressroom api stopped with error: %v", err)
	}
}

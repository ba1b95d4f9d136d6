package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vistaceo/vistaceo-server/internal/api"
	"github.com/vistaceo/vistaceo-server/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found, relying on environment")
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	server, err := api.NewServer(pool)
	if err != nil {
		log.Fatalf("Server setup failed: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("VistaCEO server listening on :%s", port)
	if err := server.Start(port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"

	"arka-asset-api/internal"
	"arka-asset-api/internal/config"
)

func main() {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	srv, err := internal.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer func() {
		if err := srv.Close(context.Background()); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Println("Starting Arka Asset API server...")
	if cfg.DatabaseDSN == "" {
		log.Println("DB_DSN not set, running on the in-memory store")
	}
	log.Printf("JWT Issuer: %s", cfg.JWTIssuer)
	log.Printf("JWT Audience: %s", cfg.JWTAudience)
	log.Printf("JWT Expiry: %v", cfg.JWTExpiry)
	log.Printf("Listening on %s", cfg.ListenAddr)

	log.Fatal(http.ListenAndServe(cfg.ListenAddr, srv.Router))
}

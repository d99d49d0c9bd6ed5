package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"lexconnect/attorney"
	"lexconnect/auth"
	"lexconnect/conflict"
	"lexconnect/db"
	"lexconnect/matter"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	pool, err := db.NewPool(ctx, connString)
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	matterRepo := matter.NewRepository(pool)
	statusService := matter.NewStatusService(pool)
	attorneyRepo := attorney.NewRepository(pool)

	server := &Server{
		matterService:   matter.NewService(pool, matterRepo, statusService),
		conflictService: conflict.NewEngine(pool, attorneyRepo, statusService),
		ledgerService:   conflict.NewLedger(pool),
		attorneyService: attorney.NewService(attorneyRepo),
		authService:     auth.NewService(auth.NewRepository(pool), jwtSecret),
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

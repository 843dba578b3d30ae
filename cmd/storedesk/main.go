package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"storedesk/api/ledger"
	"storedesk/infrastructure/audit"
	httpserver "storedesk/infrastructure/http"
	"storedesk/infrastructure/sqlite"
)

func main() {
	addr := getenv("APP_ADDR", ":8080")
	dbPath := getenv("SQLITE_PATH", "storedesk.db")
	migrationsDir := getenv("MIGRATIONS_DIR", "infrastructure/sqlite/migrations")

	boxCapacity, err := strconv.ParseInt(getenv("BOX_CAPACITY", "255"), 10, 64)
	if err != nil || boxCapacity <= 0 {
		log.Fatalf("invalid BOX_CAPACITY: %v", os.Getenv("BOX_CAPACITY"))
	}
	ledgerMode, err := ledger.ParseTotalMode(os.Getenv("LEDGER_TOTAL_MODE"))
	if err != nil {
		log.Fatalf("invalid LEDGER_TOTAL_MODE: %v", err)
	}

	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	auditSvc := audit.NewService()

	server := httpserver.NewServer(addr, db, auditSvc, boxCapacity, ledgerMode)
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	log.Printf("storedesk listening on %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

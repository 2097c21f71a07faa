// Command migrate applies the PostgreSQL run history migrations.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/testreport/internal/store"
)

func main() {
	ctx := context.Background()

	dbURL := envOr("TESTREPORT_HISTORY_DSN", os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		slog.Error("TESTREPORT_HISTORY_DSN or DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		slog.Error("failed to connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := store.MigratePostgres(ctx, pool)
	if err != nil {
		slog.Error("migration failed", "err", err)
		pool.Close()
		os.Exit(1)
	}
	for _, v := range applied {
		fmt.Printf("applied: %s\n", v)
	}
	fmt.Println("migrations complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/barterbay/internal/pkg/config"
)

type migration struct {
	up   string
	down string
}

var migrations = []migration{
	{up: "migrations/001_listings.sql", down: "migrations/001_listings.down.sql"},
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("barterbay-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		files := make([]string, 0, len(migrations))
		for _, m := range migrations {
			files = append(files, m.up)
		}
		run(ctx, pool, files)
		log.Println("all migrations applied")
	case "down":
		files := make([]string, 0, len(migrations))
		for i := len(migrations) - 1; i >= 0; i-- {
			files = append(files, migrations[i].down)
		}
		run(ctx, pool, files)
		log.Println("all migrations reverted")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func run(ctx context.Context, pool *pgxpool.Pool, files []string) {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}
}

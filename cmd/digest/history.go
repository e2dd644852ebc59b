package main

import (
	"context"
	"log"

	"go-job-digest/internal/config"
	"go-job-digest/internal/dedup"
)

// history is the seen-key backend picked from the settings.
type history interface {
	dedup.Persistence
	Lock() error
	Unlock() error
}

// openHistory returns the Postgres history when SEEN_DATABASE_URL is set,
// otherwise the line file at path. The returned func releases it.
func openHistory(ctx context.Context, cfg *config.Config, path string) (history, func(), error) {
	if cfg.SeenDatabaseURL == "" {
		return dedup.NewFileStore(path), func() {}, nil
	}
	pg, err := dedup.ConnectPostgres(ctx, cfg.SeenDatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Println("🗄️ Using Postgres seen-key history")
	return pg, pg.Close, nil
}

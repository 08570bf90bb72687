package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/noah-isme/lesson-scheduler-api/migrations"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
)

const usage = `usage: migrate COMMAND [ARGS]

commands:
  up                 apply all pending migrations
  up-by-one          apply the next migration
  up-to VERSION      apply migrations up to VERSION
  down               roll back the latest migration
  down-to VERSION    roll back to VERSION
  redo               roll back and re-apply the latest migration
  reset              roll back every migration
  status             print migration status
  version            print the current version`

var errUsage = errors.New(usage)

var gooseRunFunc = goose.Run // mockable

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	if err := migrate(db.DB, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatalf("migrate: %v", err)
	}
}

func migrate(db *sql.DB, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return gooseRunFunc(args[0], db, ".", args[1:]...)
}

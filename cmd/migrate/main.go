package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/tutor-booking-api/migrations"
	"github.com/noah-isme/tutor-booking-api/pkg/config"
	"github.com/noah-isme/tutor-booking-api/pkg/database"
	"github.com/noah-isme/tutor-booking-api/pkg/logger"
)

const usage = `usage: migrate [-disk] <up|down|status|version>

Applies the goose migrations to the configured database. By default the
migrations compiled into the binary are used; -disk reads DB_MIGRATIONS_DIR.
`

func main() {
	fromDisk := flag.Bool("disk", false, "read migrations from DB_MIGRATIONS_DIR instead of the embedded set")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	var migrator *database.Migrator
	if *fromDisk {
		migrator, err = database.NewMigrator(db.DB, nil, cfg.Database.MigrationsDir, logr)
	} else {
		migrator, err = database.NewMigrator(db.DB, migrations.FS, ".", logr)
	}
	if err != nil {
		log.Fatalf("failed to init migrator: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "version":
		var version int64
		if version, err = migrator.Version(ctx); err == nil {
			fmt.Println(version)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

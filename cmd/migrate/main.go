// Command migrate applies the SQL migrations under db/migrations against the
// configured database.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"formos/internal/config"
)

const migrationsSource = "file://db/migrations"

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate <up|down|steps N|version>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("migrate: load config: %v", err)
	}

	m, err := migrate.New(migrationsSource, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("migrate: open %s: %v", migrationsSource, err)
	}
	defer m.Close()

	switch os.Args[1] {
	case "up":
		err := m.Up()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("migrate: already up to date")
		case err != nil:
			log.Fatalf("migrate: up: %v", err)
		default:
			log.Println("migrate: all migrations applied")
		}

	case "down":
		err := m.Down()
		switch {
		case errors.Is(err, migrate.ErrNoChange):
			log.Println("migrate: nothing to revert")
		case err != nil:
			log.Fatalf("migrate: down: %v", err)
		default:
			log.Println("migrate: all migrations reverted")
		}

	case "steps":
		if len(os.Args) < 3 {
			usage()
		}
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("migrate: steps wants an integer, got %q", os.Args[2])
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: steps %d: %v", n, err)
		}
		log.Printf("migrate: applied %d step(s)", n)

	case "version":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Println("no migrations applied yet")
		case err != nil:
			log.Fatalf("migrate: version: %v", err)
		default:
			fmt.Printf("version: %d, dirty: %v\n", version, dirty)
		}

	default:
		usage()
	}
}

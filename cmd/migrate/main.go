package main

import (
	"errors"
	"flag"
	"log"

	"paychecked_admin/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("path", "migrations", "migration files directory")
	down := flag.Bool("down", false, "roll back one version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.New("file://"+*dir, cfg.Database.MigrateURL())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if *down {
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
		log.Println("Rolled back one version")
		return
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		// dirty 状态时回退到上一个成功版本后重试
		var dirty migrate.ErrDirty
		if !errors.As(err, &dirty) {
			log.Fatal(err)
		}
		log.Printf("Database is dirty at version %d, forcing version %d...", dirty.Version, dirty.Version-1)
		if err := m.Force(dirty.Version - 1); err != nil {
			log.Fatal("Failed to force version:", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal(err)
		}
	}

	log.Println("Migration successful")
}

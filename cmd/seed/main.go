// Command seed inserts the built-in system templates once.  It is a no-op
// when any system template already exists.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/iliyamo/checklistpro/internal/config"
	"github.com/iliyamo/checklistpro/internal/database"
	"github.com/iliyamo/checklistpro/internal/repository"
	"github.com/iliyamo/checklistpro/internal/seed"
	"github.com/iliyamo/checklistpro/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	var (
		db  *sql.DB
		err error
	)
	if cfg.DBDriver == database.DriverSQLite {
		db, err = database.OpenSQLite(cfg.DBPath)
	} else {
		db, err = database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}
	n, err := seed.Run(context.Background(), repository.NewTemplateRepo(db))
	if err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
	if n == 0 {
		slog.Info("system templates already present, nothing to do")
		return
	}
	slog.Info("system templates seeded", "inserted", n)
}

// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/unclebandit/crm-backend/internal/config"
	"github.com/unclebandit/crm-backend/internal/db"
	"github.com/unclebandit/crm-backend/internal/logger"
	"github.com/unclebandit/crm-backend/internal/middleware"
)

var seedFiles = []string{
	"users.sql",
	"customers.sql",
	"leads.sql",
	"templates.sql",
	"campaigns.sql",
}

// seedAdminID is the admin user created by users.sql.
const seedAdminID = 1

func main() {
	dir := flag.String("dir", "seed", "directory holding the seed SQL files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatalw("config_invalid", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	conn, err := db.Open(cfg.Database.DSN())
	if err != nil {
		logger.L().Fatalw("db_open_failed", "error", err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx, conn); err != nil {
		logger.L().Fatalw("migrate_failed", "error", err)
	}

	for _, name := range seedFiles {
		file := filepath.Join(*dir, name)
		content, err := os.ReadFile(file)
		if err != nil {
			logger.L().Fatalw("seed_read_failed", "file", file, "error", err)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			logger.L().Fatalw("seed_exec_failed", "file", file, "error", err)
		}
		logger.L().Infow("seeded", "file", file)
	}

	token, err := middleware.IssueToken([]byte(cfg.JWTSecret), seedAdminID, 24*time.Hour)
	if err != nil {
		logger.L().Fatalw("token_issue_failed", "error", err)
	}
	fmt.Printf("Admin token (24h): %s\n", token)
}

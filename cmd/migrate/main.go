package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hugh/lexvault/internal/admin"
	"github.com/hugh/lexvault/internal/audit"
	"github.com/hugh/lexvault/internal/database"
	"github.com/hugh/lexvault/internal/policy"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/crypto"
	"github.com/hugh/lexvault/pkg/util"
	"github.com/joho/godotenv"
)

const generatedPasswordLength = 24

func main() {
	seedAdmin := flag.String("seed-admin", "", "email of the first super admin to create after migrating")
	adminName := flag.String("admin-name", "Administrator", "display name of the seeded super admin")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, "lexvault-migrate")
	slog.SetDefault(logger)

	if err := database.Migrate(&cfg.Database, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	if *seedAdmin == "" {
		return
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	password := os.Getenv("ADMIN_PASSWORD")
	generated := password == ""
	if generated {
		password, err = crypto.GenerateRandomString(generatedPasswordLength)
		if err != nil {
			logger.Error("failed to generate password", "error", err)
			os.Exit(1)
		}
	}

	svc := admin.NewService(db, policy.NewEnforcer(logger), audit.NewRecorder(db, logger), logger)
	user, created, err := svc.Bootstrap(context.Background(), *seedAdmin, password, *adminName)
	if err != nil {
		logger.Error("failed to seed super admin", "error", err)
		os.Exit(1)
	}
	if !created {
		fmt.Println("A super admin already exists; nothing seeded.")
		return
	}

	fmt.Printf("Super admin created: %s\n", user.Email)
	if generated {
		fmt.Printf("Generated password (shown once): %s\n", password)
	}
}

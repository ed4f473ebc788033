package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/database"
	"github.com/guildxp/levelbot/levelbot/logger"
	"github.com/guildxp/levelbot/levelbot/migration"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(slog.LevelInfo)))

	configPath := flag.String("config", "config.toml", "path to config")
	mongoURI := flag.String("mongo-uri", "mongodb://localhost:27017", "legacy mongo connection string")
	mongoName := flag.String("mongo-db", "levelbot", "legacy mongo database name")
	flag.Parse()

	ctx := context.Background()

	cfg, err := levelbot.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}

	mongoDB, err := migration.Connect(ctx, *mongoURI, *mongoName)
	if err != nil {
		slog.Error("Failed to connect to legacy mongo", slog.Any("error", err))
		os.Exit(1)
	}

	migrator := migration.NewMigrator(db.BunDB(), mongoDB)
	if err := migrator.MigrateAll(ctx); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migration completed successfully")
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/guildxp/levelbot/levelbot"
	"github.com/guildxp/levelbot/levelbot/commands"
	"github.com/guildxp/levelbot/levelbot/database"
	"github.com/guildxp/levelbot/levelbot/database/repositories"
	"github.com/guildxp/levelbot/levelbot/handlers"
	"github.com/guildxp/levelbot/levelbot/logger"
	"github.com/guildxp/levelbot/levelbot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := levelbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting LevelBot",
		slog.String("version", version),
		slog.String("commit", commit))

	loc := time.UTC
	if cfg.XP.Timezone != "" {
		loc, err = time.LoadLocation(cfg.XP.Timezone)
		if err != nil {
			slog.Error("Invalid timezone in configuration",
				slog.String("timezone", cfg.XP.Timezone),
				slog.Any("error", err))
			os.Exit(-1)
		}
	}

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}

	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := levelbot.New(*cfg, version, commit)
	b.DB = db
	b.Location = loc

	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.QuestRepository = repositories.NewQuestRepository(db.BunDB())
	b.ProgressRepository = repositories.NewProgressRepository(db.BunDB())
	b.NotificationRepository = repositories.NewNotificationRepository(db.BunDB())

	apexRole := ""
	if cfg.XP.ApexRole != 0 {
		apexRole = cfg.XP.ApexRole.String()
	}
	b.BadgeService = services.NewBadgeService(b.UserRepository, apexRole)
	b.XPService = services.NewXPService(b.UserRepository, b.NotificationRepository, b.BadgeService)
	b.QuestMigrator = services.NewQuestMigrator(b.QuestRepository, b.ProgressRepository, loc)
	b.QuestCatalog = services.NewQuestCatalogService(b.QuestRepository, b.QuestMigrator)
	b.QuestProgress = services.NewQuestProgressService(b.QuestCatalog, b.ProgressRepository, b.QuestMigrator, loc)
	b.ActivityService = services.NewActivityService(b.UserRepository, b.XPService, b.QuestProgress, cfg.XP.PerMessage)

	h := handler.New()

	// Member commands
	h.Command("/profile", handlers.WrapWithLogging("profile", commands.ProfileHandler(b)))
	h.Command("/quests", handlers.WrapWithLogging("quests", commands.QuestsHandler(b)))
	h.Component("/quests-tab/{type}", handlers.WrapComponentWithLogging("quests-tab", commands.QuestsTabHandler(b)))
	h.Component("/quest-claim/{objective_id}", handlers.WrapComponentWithLogging("quest-claim", commands.QuestClaimHandler(b)))
	h.Command("/claim", handlers.WrapWithLogging("claim", commands.ClaimHandler(b)))
	h.Autocomplete("/claim", commands.ClaimAutocompleteHandler(b))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))

	// Admin commands
	h.Command("/quest-edit", handlers.WrapWithLogging("quest-edit", commands.QuestEditHandler(b)))
	h.Autocomplete("/quest-edit", commands.ClaimAutocompleteHandler(b))
	h.Command("/badge-set", handlers.WrapWithLogging("badge-set", commands.BadgeSetHandler(b)))
	h.Command("/grant-xp", handlers.WrapWithLogging("grant-xp", commands.GrantXPHandler(b)))

	voiceTracker := handlers.NewVoiceTracker(b)

	if err = b.SetupBot(h,
		bot.NewListenerFunc(b.OnReady),
		handlers.MessageHandler(b),
		voiceTracker.Listener(),
	); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}

package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.skobk.in/skobkin/telegram-conversation-saver/archive"
	"git.skobk.in/skobkin/telegram-conversation-saver/bot"
	"git.skobk.in/skobkin/telegram-conversation-saver/render"
	"git.skobk.in/skobkin/telegram-conversation-saver/storage"
	"git.skobk.in/skobkin/telegram-conversation-saver/web"
)

func main() {
	// Parse command-line flags
	verbose := flag.Bool("v", false, "Enable verbose logging (LevelInfo)")
	veryVerbose := flag.Bool("vv", false, "Enable very verbose logging (LevelDebug)")
	flag.Parse()

	// Set up logging
	setLogLevel(*verbose, *veryVerbose)

	slog.Debug("main: Command-line flags parsed", "verbose", *verbose, "very_verbose", *veryVerbose)

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Warn("main: Failed to load .env file", "error", err)
	}

	// Get configuration from environment
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		slog.Error("main: TELEGRAM_BOT_TOKEN environment variable is required")
		os.Exit(1)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "conversations.sqlite"
		slog.Debug("main: Using default database path", "path", dbPath)
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
		slog.Debug("main: Using default listen address", "addr", listenAddr)
	}

	siteURL := os.Getenv("SITE_URL")

	// Initialize storage
	slog.Debug("main: Initializing storage", "db_path", dbPath)
	store, err := storage.New(dbPath)
	if err != nil {
		slog.Error("main: Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	archiver := archive.New(store)
	renderer := render.New(store)

	// Start conversation viewer
	router := web.NewRouter(renderer)
	go func() {
		slog.Info("main: Starting web server", "addr", listenAddr)
		if err := router.Run(listenAddr); err != nil {
			slog.Error("main: Web server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Initialize bot
	slog.Debug("main: Initializing bot")
	saverBot, err := bot.New(token, store, archiver, siteURL)
	if err != nil {
		slog.Error("main: Failed to initialize bot", "error", err)
		os.Exit(1)
	}

	// Start bot; blocks until the update loop stops
	slog.Info("main: Starting bot...")
	if err := saverBot.Start(); err != nil {
		slog.Error("main: Failed to start bot", "error", err)
		os.Exit(1)
	}
}

// setLogLevel configures the logging level based on the provided flags
func setLogLevel(verbose, veryVerbose bool) {
	// Determine logging level based on flags
	logLevel := slog.LevelWarn // Default level
	if veryVerbose {
		logLevel = slog.LevelDebug
	} else if verbose {
		logLevel = slog.LevelInfo
	}

	// Configure structured logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

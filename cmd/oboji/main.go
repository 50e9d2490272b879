// Package main is the oboji CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/oboji/internal/bot"
	"github.com/hyperjump/oboji/internal/cli"
	"github.com/hyperjump/oboji/internal/config"
	"github.com/hyperjump/oboji/internal/discord"
	"github.com/hyperjump/oboji/internal/gemini"
	"github.com/hyperjump/oboji/internal/inventory"
	"github.com/hyperjump/oboji/internal/knowledge"
	"github.com/hyperjump/oboji/internal/server"
	"github.com/hyperjump/oboji/internal/storage"
	"github.com/hyperjump/oboji/internal/watcher"
	"github.com/hyperjump/oboji/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.json"

// followUpMargin is added to the AI timeout to bound a deferred reply, leaving
// room for the follow-up edit after the answer arrives.
const followUpMargin = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "register":
		runRegister()
	case "inventory":
		runInventory()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("oboji version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// loadConfig loads and validates the config at path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustLoadConfig(path string) *config.Config {
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func mustLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, dispatches, AI calls)")
	_ = fs.Parse(os.Args[2:])

	cfg := mustLoadConfig(*configPath)
	debugMode := cfg.Debug || *debug
	logger := mustLogger(debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", *configPath),
		zap.Bool("debug", debugMode),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Knowledge.Watch {
		if _, err := components.Knowledge.Watch(ctx, knowledgeWatchOptions(logger, debugMode)...); err != nil {
			logger.Warn("knowledge watch disabled", zap.String("path", cfg.Knowledge.Path), zap.Error(err))
		}
	}

	handlerOpts := []discord.HandlerOption{
		discord.WithLogger(logger),
		discord.WithFollowUpTimeout(cfg.AI.Timeout + followUpMargin),
	}
	switch {
	case cfg.PublicKey != "":
		verifier, err := discord.NewVerifier(cfg.PublicKey)
		if err != nil {
			logger.Fatal("Invalid PUBLIC_KEY", zap.Error(err))
		}
		handlerOpts = append(handlerOpts, discord.WithVerifier(verifier))
	case cfg.Server.InsecureSkipVerify:
		logger.Warn("interaction signatures are not verified (server.insecure_skip_verify)")
	default:
		logger.Fatal("PUBLIC_KEY is required to verify interactions (or set server.insecure_skip_verify for local testing)")
	}

	rest := newDiscordClient(cfg, logger)
	if cfg.ApplicationID != "" {
		handlerOpts = append(handlerOpts, discord.WithFollowUps(rest))
		if cfg.Discord.RegisterCommandsOrDefault() {
			regCtx, regCancel := context.WithTimeout(ctx, 30*time.Second)
			if err := rest.RegisterCommands(regCtx, components.Router.Definitions()); err != nil {
				logger.Warn("command registration failed", zap.Error(err))
			}
			regCancel()
		}
	} else {
		logger.Warn("APPLICATION_ID not set: commands are not registered and slow replies are sent inline")
	}

	interactions := discord.NewHandler(components.Router, handlerOpts...)
	srv := server.NewServer(interactions, components.Router, components.Inventory, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
	interactions.Wait()
}

func runRegister() {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg := mustLoadConfig(*configPath)
	if cfg.ApplicationID == "" {
		fmt.Fprintln(os.Stderr, "APPLICATION_ID is required to register commands")
		os.Exit(1)
	}
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	defs := bot.DefaultDefinitions(bot.Deps{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := newDiscordClient(cfg, logger).RegisterCommands(ctx, defs); err != nil {
		fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
		os.Exit(1)
	}
	for _, d := range defs {
		fmt.Printf("registered /%s\n", d.Name)
	}
}

func runInventory() {
	fs := flag.NewFlagSet("inventory", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	userID := joinArgs(fs.Args())
	if userID == "" {
		fmt.Fprintln(os.Stderr, "Usage: oboji inventory [flags] <user-id>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := mustLoadConfig(*configPath)
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	store, closeStore, err := openInventory(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	report := cli.InventoryReport{UserID: userID, Items: store.Items(userID)}
	if err := cli.WriteInventory(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := joinArgs(fs.Args())
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: oboji ask [flags] <question>")
		os.Exit(1)
	}
	cfg := mustLoadConfig(*configPath)
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	kb := knowledge.NewLoader(cfg.Knowledge.Path, knowledge.WithLogger(logger))
	client := gemini.NewClient(gemini.Config{Endpoint: cfg.AI.Endpoint, Timeout: cfg.AI.Timeout}, kb, gemini.WithLogger(logger))
	fmt.Println(client.Ask(context.Background(), question, cfg.GeminiAPIKey))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := mustLoadConfig(*configPath)
	logger := mustLogger(cfg.Debug)
	defer logger.Sync()

	store, closeStore, err := openInventory(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := cli.WriteStatus(os.Stdout, buildStatus(cfg, store.Users()), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func buildStatus(cfg *config.Config, users int) *cli.Status {
	status := &cli.Status{
		Backend:       cfg.Storage.Backend,
		StoragePath:   storagePath(cfg),
		Users:         users,
		KnowledgePath: cfg.Knowledge.Path,
		AIConfigured:  cfg.GeminiAPIKey != "",
		AIEndpoint:    cfg.AI.Endpoint,
		AITimeout:     cfg.AI.Timeout.String(),
	}
	if cfg.Storage.Backend == storage.BackendSQLite {
		p := cfg.Storage.DatabasePath
		if n, err := storage.DiskUsageBytes(p, p+"-wal", p+"-shm"); err == nil {
			status.DiskUsageBytes = &n
		}
	} else if n, err := storage.DiskUsageBytes(cfg.Storage.InventoryPath); err == nil {
		status.DiskUsageBytes = &n
	}
	if info, err := os.Stat(cfg.Knowledge.Path); err == nil {
		n := info.Size()
		status.KnowledgeBytes = &n
	}
	for _, d := range bot.DefaultDefinitions(bot.Deps{}) {
		status.Commands = append(status.Commands, d.Name)
	}
	return status
}

func storagePath(cfg *config.Config) string {
	if cfg.Storage.Backend == storage.BackendSQLite {
		return cfg.Storage.DatabasePath
	}
	return cfg.Storage.InventoryPath
}

func newDiscordClient(cfg *config.Config, logger *zap.Logger) *discord.Client {
	return discord.NewClient(discord.ClientConfig{
		BaseURL:       cfg.Discord.APIBaseURL,
		Token:         cfg.Token,
		ApplicationID: cfg.ApplicationID,
	}, discord.WithClientLogger(logger))
}

func knowledgeWatchOptions(logger *zap.Logger, debug bool) []watcher.WatcherOption {
	if !debug {
		return nil
	}
	return []watcher.WatcherOption{watcher.WithLogger(logger)}
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument, so "oboji ask what now -config x.json" would
// otherwise treat -config as part of the question.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional arguments into one trimmed string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Inventory *inventory.Store
	Knowledge *knowledge.Loader
	AI        *gemini.Client
	Router    *bot.Router
}

// Close releases the storage backend.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func openInventory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*inventory.Store, func(), error) {
	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.InventoryPath, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	store := inventory.NewStore(backend, inventory.WithLogger(logger))
	store.Load(ctx)
	return store, func() { _ = backend.Close() }, nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	backend, err := storage.Open(cfg.Storage.Backend, cfg.Storage.InventoryPath, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	store := inventory.NewStore(backend, inventory.WithLogger(logger))
	store.Load(ctx)

	kb := knowledge.NewLoader(cfg.Knowledge.Path,
		knowledge.WithLogger(logger),
		knowledge.WithCache(cfg.Knowledge.Cache),
	)
	ai := gemini.NewClient(gemini.Config{Endpoint: cfg.AI.Endpoint, Timeout: cfg.AI.Timeout}, kb, gemini.WithLogger(logger))
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set: /obojichat will report that the AI is not configured")
	}

	router, err := bot.NewDefaultRouter(bot.Deps{
		Inventory: store,
		AI:        ai,
		APIKey:    cfg.GeminiAPIKey,
	}, bot.WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to build command router: %w", err)
	}

	return &Components{
		Storage:   backend,
		Inventory: store,
		Knowledge: kb,
		AI:        ai,
		Router:    router,
	}, nil
}

func printUsage() {
	fmt.Println(`oboji - Discord bot with per-user inventories and an AI helper

Usage:
  oboji server [flags]              Start the interactions HTTP server
  oboji register [flags]            Register slash commands with Discord
  oboji inventory [flags] <user>    Show a user's inventory
  oboji ask [flags] <question>      Ask the AI helper a question
  oboji status [flags]              Show storage/knowledge/AI status
  oboji version                     Show version
  oboji help                        Show this help

Server Flags:
  --config string    Config file path (default: config.json)
  --debug            Enable debug logging (requests, dispatches, AI calls)

Inventory/Status Flags:
  --config string    Config file path (default: config.json)
  --output string    Output format: text or json (default: text)

Ask/Register Flags:
  --config string    Config file path (default: config.json)

Examples:
  oboji server --config /etc/oboji/config.json
  oboji register
  oboji inventory 123456789012345678
  oboji inventory --output json 123456789012345678
  oboji ask "Quem é o Oboji?"
  oboji status --output json`)
}

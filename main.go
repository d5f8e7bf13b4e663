package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	_ "github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore/mssql"
	_ "github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore/postgres"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/chat"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/config"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/database"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/kb"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/logging"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/mcp"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/mitre"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/prompts"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/sentinel"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

// Version is set at build time via ldflags
var Version = "dev"

const welcomeBanner = `Sentinel AI Assistant
Query incidents, alerts, trends, and entities using natural language.
Commands: /clear (reset conversation), /quit or /exit (leave)
`

const goodbye = "Goodbye."

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentinel-assistant",
	Short: "Natural-language assistant for Microsoft Sentinel security data",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration, tool schemas and prompt coverage",
	RunE:  runValidate,
}

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve the query tools over the Model Context Protocol on stdio",
	RunE:  runServeMCP,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var seedKBCmd = &cobra.Command{
	Use:   "seed-kb",
	Short: "Load seed incidents and playbooks into the knowledge base",
	RunE:  runSeedKB,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.AddCommand(chatCmd, validateCmd, serveMCPCmd, migrateCmd, seedKBCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired dependencies shared by the subcommands.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	client     llm.Client
	executor   logstore.Executor
	dispatcher *tools.Dispatcher
	kbStore    *kb.Store
	kbPool     *database.DB
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	client, err := llm.Factory{}.NewClient(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		APIVersion:  cfg.LLM.APIVersion,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	executor, err := logstore.Open(ctx, &logstore.Config{
		Driver:   cfg.LogStore.Driver,
		DSN:      cfg.LogStore.DSN,
		MaxConns: cfg.LogStore.MaxConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open log store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		executor: executor,
	}

	dispatcherCfg := &tools.DispatcherConfig{
		Client: sentinel.NewClient(executor, logger),
		Logger: logger,
	}

	if cfg.Knowledge.Enabled() {
		store, pool, err := buildKnowledgeBase(ctx, cfg, client, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.kbStore = store
		a.kbPool = pool
		dispatcherCfg.KB = store
		dispatcherCfg.Techniques = mitre.NewFetcher(&mitre.FetcherConfig{
			CacheDir: cfg.Knowledge.MitreCacheDir,
			Logger:   logger,
		})
	}

	a.dispatcher = tools.NewDispatcher(dispatcherCfg)
	return a, nil
}

func buildKnowledgeBase(ctx context.Context, cfg *config.Config, client llm.Client, logger *zap.Logger) (*kb.Store, *database.DB, error) {
	embedder, ok := client.(llm.Embedder)
	if !ok {
		return nil, nil, fmt.Errorf("provider %q does not support embeddings; unset KB_DATABASE_URL or use an OpenAI-compatible provider", cfg.LLM.Provider)
	}

	pool, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Knowledge.DatabaseURL,
		MaxConnections: cfg.Knowledge.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to knowledge base: %w", err)
	}

	store := kb.NewStore(&kb.StoreConfig{
		Pool:           pool.Pool,
		Embedder:       embedder,
		EmbeddingModel: cfg.Knowledge.EmbeddingModel,
		Logger:         logger,
	})
	return store, pool, nil
}

func (a *app) Close() {
	if a.executor != nil {
		a.executor.Close()
	}
	if a.kbPool != nil {
		a.kbPool.Close()
	}
	_ = a.logger.Sync()
}

// ============================================================================
// chat
// ============================================================================

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	session := chat.NewSession(&chat.SessionConfig{
		Client:     a.client,
		Dispatcher: a.dispatcher,
		Logger:     a.logger,
		Progress: func(status string) {
			fmt.Fprintf(os.Stderr, "  %s\n", status)
		},
		MaxToolRounds: a.cfg.Chat.MaxToolRounds,
		MaxTurns:      a.cfg.Chat.MaxTurns,
	})

	return chatLoop(ctx, session, os.Stdin, os.Stdout, os.Stderr)
}

func chatLoop(ctx context.Context, session *chat.Session, stdin io.Reader, stdout, stderr io.Writer) error {
	fmt.Fprintln(stderr, welcomeBanner)
	fmt.Fprintln(stderr, prompts.Disclaimer)

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout, "\n"+goodbye)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "/quit", "/exit":
			fmt.Fprintln(stdout, goodbye)
			return nil
		case "/clear":
			summary := session.Clear()
			// ANSI escape: clear screen, move cursor home.
			fmt.Fprint(stdout, "\033[2J\033[H")
			fmt.Fprintln(stderr, welcomeBanner)
			fmt.Fprintf(stdout, "\n%s\n\n", summary)
			continue
		}

		response, err := session.Send(ctx, input)
		if err != nil {
			printSendError(stderr, err)
			continue
		}
		fmt.Fprintf(stdout, "\nAssistant: %s\n", response)
	}
}

// printSendError maps provider failures to actionable one-liners.
func printSendError(stderr io.Writer, err error) {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Type {
		case llm.ErrorTypeAuth:
			fmt.Fprintln(stderr, "\nError: Authentication failed. Check your API key.")
			return
		case llm.ErrorTypeTransport:
			fmt.Fprintln(stderr, "\nError: Could not reach the model provider. Check your endpoint.")
			return
		case llm.ErrorTypeModel:
			fmt.Fprintln(stderr, "\nError: The configured model or deployment was not found.")
			return
		case llm.ErrorTypeRateLimit:
			fmt.Fprintln(stderr, "\nError: The provider is throttling requests. Try again shortly.")
			return
		}
	}
	fmt.Fprintf(stderr, "\nError: %v\n", err)
}

// ============================================================================
// validate
// ============================================================================

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration OK (%s, provider %s, driver %s)\n",
		configPath, cfg.LLM.Provider, cfg.LogStore.Driver)

	if err := tools.Validate(); err != nil {
		return fmt.Errorf("tool schema validation failed: %w", err)
	}
	fmt.Printf("Tool schemas OK (%d tools)\n", len(tools.Names()))

	if err := prompts.CheckCoverage(); err != nil {
		return fmt.Errorf("prompt coverage check failed: %w", err)
	}
	fmt.Println("Prompt field coverage OK")

	return nil
}

// ============================================================================
// serve-mcp
// ============================================================================

func runServeMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer("sentinel-assistant", Version, a.logger)
	if err := mcp.RegisterSecurityTools(srv.MCP(), a.dispatcher, a.logger); err != nil {
		return err
	}

	a.logger.Info("Serving MCP on stdio",
		zap.Bool("knowledge_base", a.dispatcher.HasKnowledgeBase()))
	return srv.ServeStdio()
}

// ============================================================================
// migrate
// ============================================================================

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	dsn, err := database.MigrationDSN(cfg.LogStore.Driver, cfg.LogStore.DSN, cfg.Knowledge.DatabaseURL)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return database.RunMigrations(db, cfg.LogStore.MigrationsPath, logger)
}

// ============================================================================
// seed-kb
// ============================================================================

func runSeedKB(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Knowledge.Enabled() {
		return fmt.Errorf("knowledge base is not configured; set KB_DATABASE_URL")
	}

	seed, err := kb.LoadSeedFile(a.cfg.Knowledge.SeedPath)
	if err != nil {
		return err
	}

	incidents, chunks, err := a.kbStore.Seed(ctx, seed)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Printf("Seeded %d incident(s) and %d playbook chunk(s) from %s\n",
		incidents, chunks, a.cfg.Knowledge.SeedPath)
	return nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/wooix/ideabot/internal/audit"
	"github.com/wooix/ideabot/internal/bot"
	"github.com/wooix/ideabot/internal/config"
	"github.com/wooix/ideabot/internal/draftstore"
	"github.com/wooix/ideabot/internal/refine"
	"github.com/wooix/ideabot/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the intake bot",
	Long: `Start the Telegram intake bot. Ideas are refined into issue drafts,
previewed, and created in the configured repository on approval.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, cfgPath, err := loadOrCreateConfig(configPath, logger)
	if err != nil {
		return err
	}

	logger.Info("loaded configuration", "path", cfgPath)

	if err := cfg.Validate(); err != nil {
		return err
	}

	token := os.Getenv(cfg.TokenEnvName())
	if token == "" {
		return fmt.Errorf("telegram token not set\n\nHint: export the bot token before starting:\n  export %s=...", cfg.TokenEnvName())
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}

	callerCfg := refine.DefaultCLIConfig(cfg.Refiner.Cmd)
	if cfg.Refiner.TimeoutS > 0 {
		callerCfg.Timeout = time.Duration(cfg.Refiner.TimeoutS) * time.Second
	}
	if cfg.Refiner.MaxOutputBytes > 0 {
		callerCfg.MaxOutputBytes = int64(cfg.Refiner.MaxOutputBytes)
	}
	refiner := refine.NewClient(refine.NewCLICaller(callerCfg, logger), logger)

	trk := tracker.NewClient(tracker.Config{
		Bin:     cfg.Tracker.Bin,
		Owner:   cfg.Tracker.Owner,
		Repo:    cfg.Tracker.Repo,
		Project: cfg.Tracker.Project,
		Timeout: time.Duration(cfg.Tracker.TimeoutS) * time.Second,
	}, logger)

	// The audit log is optional; an empty path disables it.
	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		path := cfg.Audit.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(cfgPath), path)
		}
		auditLog, err = audit.Open(path, logger)
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		defer auditLog.Close()
	}

	ctrl := bot.NewController(draftstore.New(), refiner, trk, auditLog, logger)
	tg := bot.NewTelegramBot(api, ctrl, trk, cfg.Telegram.AllowedUserIDs, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting bot",
		"repo", cfg.Tracker.Owner+"/"+cfg.Tracker.Repo,
		"project", cfg.Tracker.Project,
		"allowed_users", len(cfg.Telegram.AllowedUserIDs))

	if err := tg.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("bot stopped")
	return nil
}

// loadOrCreateConfig finds an existing config or creates a new one.
// Walks up the directory tree; creates a default in CWD if not found.
func loadOrCreateConfig(configPath string, logger *slog.Logger) (*config.Config, string, error) {
	// If explicit path provided, use it
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, configPath, nil
	}

	// Search up directory tree for ideabot.json
	foundPath, err := findConfigInTree()
	if err != nil {
		return nil, "", err
	}

	if foundPath != "" {
		logger.Info("found existing config", "path", foundPath)
		cfg, err := config.LoadFromFile(foundPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, foundPath, nil
	}

	// No config found, create default in current directory
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	defaultPath := filepath.Join(cwd, "ideabot.json")
	logger.Info("no config found, creating default", "path", defaultPath)

	cfg := config.GenerateDefault()
	if err := cfg.SaveToFile(defaultPath); err != nil {
		return nil, "", fmt.Errorf("failed to save default config: %w", err)
	}

	logger.Info("created default config", "path", defaultPath)
	return cfg, defaultPath, nil
}

// findConfigInTree searches up the directory tree for ideabot.json
func findConfigInTree() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	for {
		configPath := filepath.Join(dir, "ideabot.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", nil
}

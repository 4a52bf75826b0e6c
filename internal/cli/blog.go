package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wooix/ideabot/internal/blog"
)

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Serve the blog post API",
	Long:  `Serve the blog post CRUD API that the created issues track work against.`,
	RunE:  runBlog,
}

func runBlog(cmd *cobra.Command, args []string) error {
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

	if err := cfg.Validate(); err != nil {
		return err
	}

	dbPath := cfg.Blog.DBPath
	if dbPath != "" && dbPath != ":memory:" && !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(filepath.Dir(cfgPath), dbPath)
	}

	store, err := blog.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open blog database: %w", err)
	}
	defer store.Close()

	srv := blog.NewServer(store, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving blog API", "addr", cfg.Blog.ListenAddr, "db", dbPath)
	return srv.ListenAndServe(ctx, cfg.Blog.ListenAddr)
}

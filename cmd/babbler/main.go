package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/CTAG07/Babbler/pkg/ngram"
	"github.com/CTAG07/Babbler/pkg/sanitize"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// options are the values taken from the command line and the environment.
type options struct {
	configPath string
	build      bool
	seed       uint64
}

func main() {
	// DEV_MODE is the only ambient switch; it is read here and nowhere else.
	_, devMode := os.LookupEnv("DEV_MODE")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd := newRootCmd(devMode)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnose(err))
		os.Exit(1)
	}
}

func newRootCmd(devMode bool) *cobra.Command {
	opts := &options{build: devMode}

	root := &cobra.Command{
		Use:   "babbler [level]",
		Short: "Build n-gram models from a corpus and generate text from them",
		Long: `babbler counts every n-gram of length 1 to max_depth in the sanitized corpus
and stores one model per length. Given a level, it loads that model and prints
text sampled from it.

Build mode is selected with --build or by setting DEV_MODE.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Args:          argsBetween(0, 1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts, args)
		},
	}
	root.SetFlagErrorFunc(flagError)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.json", "path of the JSON config file")
	root.Flags().BoolVar(&opts.build, "build", opts.build, "sanitize the texts and rebuild every model before generating")
	root.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for the random source (0 picks a random seed)")

	root.AddCommand(newStatsCmd(opts), newExportCmd(opts), newImportCmd(opts), newPruneCmd(opts))
	return root
}

func runRoot(cmd *cobra.Command, opts *options, args []string) error {
	if len(args) == 0 && !opts.build {
		return &configError{
			ru:  "Недостаточно аргументов. Используйте число для выбора уровня глубины алгоритма.",
			en:  "Not enough arguments. Use a number to choose the depth level of the algorithm.",
			err: fmt.Errorf("missing level"),
		}
	}

	config, err := LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	level := 0
	if len(args) == 1 {
		if level, err = parseLevel(args[0], config.MaxDepth); err != nil {
			return err
		}
	}

	logger := newLogger(config.LogLevel, cmd.ErrOrStderr())
	ctx := cmd.Context()

	store, closeStore, err := openStore(config, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.build {
		if err = buildModels(ctx, config, store, logger); err != nil {
			return err
		}
	}
	if level == 0 {
		return nil
	}

	m, err := store.Load(ctx, level)
	if err != nil {
		return err
	}
	engine := ngram.NewEngine(m)
	engine.SetLogger(logger)

	genOpts := []ngram.GenerateOption{
		ngram.WithIterations(config.Iterations),
		ngram.WithBoundary(config.Boundary),
	}
	if opts.seed != 0 {
		genOpts = append(genOpts, ngram.WithRand(rand.New(rand.NewPCG(opts.seed, opts.seed))))
	}
	text, err := engine.Generate(ctx, genOpts...)
	if err != nil {
		logger.Warn("Generation stopped early", "level", level, "generated_bytes", len(text), "error", err)
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}

// parseLevel converts the level argument, rejecting anything outside
// [1, maxDepth] before any model is touched.
func parseLevel(arg string, maxDepth int) (int, error) {
	level, err := strconv.Atoi(arg)
	if err != nil {
		return 0, &configError{
			ru:  "Не удалось преобразовать аргумент в целое число.",
			en:  "Couldn't convert argument into an integer.",
			err: err,
		}
	}
	if err = ngram.ValidateLevel(level, maxDepth); err != nil {
		return 0, &configError{
			ru:  fmt.Sprintf("Уровень глубины должен быть от 1 до %d.", maxDepth),
			en:  fmt.Sprintf("Depth level must be between 1 and %d.", maxDepth),
			err: err,
		}
	}
	return level, nil
}

func buildModels(ctx context.Context, config *Config, store ngram.Store, logger *slog.Logger) error {
	sanitizer := sanitize.New(
		sanitize.WithWhitelist(config.Whitelist),
		sanitize.WithWorkers(config.Workers),
	)
	sanitizer.SetLogger(logger)
	if err := sanitizer.Dir(ctx, config.TextsDir, config.PreparedDir); err != nil {
		return fmt.Errorf("sanitizing texts: %w", err)
	}
	logger.Info("Texts sanitized", "source", config.TextsDir, "destination", config.PreparedDir)

	builder := ngram.NewBuilder(
		ngram.NewDirCorpus(config.PreparedDir),
		store,
		ngram.WithMaxDepth(config.MaxDepth),
		ngram.WithWorkers(config.Workers),
		ngram.WithLevelWorkers(config.LevelWorkers),
	)
	builder.SetLogger(logger)
	return builder.Build(ctx)
}

// openStore opens the model store selected by the config. The returned
// function releases it.
func openStore(config *Config, logger *slog.Logger) (ngram.Store, func(), error) {
	switch config.Store {
	case storeSQLite:
		dbPath, _, _ := strings.Cut(config.DatabasePath, "?")
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
		db, err := initDB(config.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = ngram.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store, err := ngram.NewSQLStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to prepare model store: %w", err)
		}
		store.SetLogger(logger)
		return store, func() {
			store.Close()
			closeDB(db, logger)
		}, nil
	default:
		store := ngram.NewFileStore(config.ModelsDir)
		store.SetLogger(logger)
		return store, func() {}, nil
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

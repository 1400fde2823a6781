package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"edencore/marketrun/internal/apiclient"
	"edencore/marketrun/internal/cache"
	"edencore/marketrun/internal/config"
	"edencore/marketrun/internal/i18n"
	"edencore/marketrun/internal/marketrun"
	"edencore/marketrun/internal/notify"
)

type globalOptions struct {
	envFile string
	apiURL  string
	lang    string
	verbose bool

	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "edenmarket",
		Short: "Market-run companion for Eden Core purchasers",
		Long: `edenmarket loads the consolidated shopping list for the day's market run,
shows it grouped by category, by store or by market stall, and finalizes
purchases as a single batch.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend API base URL (overrides EDEN_API_URL)")
	root.PersistentFlags().StringVar(&opts.lang, "lang", "", "display language: en, ru, uz or cn (overrides EDEN_LANGUAGE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(opts),
		newDistributionCmd(opts),
		newStallsCmd(opts),
		newSearchCmd(opts),
		newRunCmd(opts),
	)
	return root
}

// session is one CLI invocation's engine plus the resources behind it.
type session struct {
	engine  *marketrun.Engine
	cfg     config.Config
	notices *notify.Channel
	closers []func() error
	done    sync.WaitGroup
}

func (o *globalOptions) resolveConfig() (config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return config.Config{}, err
	}
	cfg := config.Load()
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.lang != "" {
		cfg.Language = i18n.ParseLanguage(o.lang)
	}
	return cfg, validateClientConfig(cfg)
}

func (o *globalOptions) openSession(ctx context.Context, stderr io.Writer) (*session, error) {
	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := apiclient.Credentials{InitData: cfg.TelegramInitData, DevTelegramID: cfg.DevTelegramID}
	client := apiclient.New(cfg.APIURL, creds, cfg.RequestTimeout(), logger)

	s := &session{cfg: cfg, notices: notify.NewChannel(32)}

	cacheStore := cache.ConsolidationCache(cache.NoopConsolidationCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisConsolidationCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			cacheStore = redisCache
			s.closers = append(s.closers, redisCache.Close)
			logger.Debug("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	}
	source := apiclient.NewCachedClient(client, cacheStore, cfg.ConsolidationCacheTTL(), creds.Identity(), logger)

	s.engine = marketrun.NewEngine(source, marketrun.Options{
		Notifier:       s.notices,
		Language:       cfg.Language,
		MarketLocation: cfg.MarketLocation,
		Logger:         logger,
	})

	s.done.Add(1)
	go func() {
		defer s.done.Done()
		for n := range s.notices.Notices() {
			fmt.Fprintf(stderr, "[%s] %s\n", n.Kind, n.Text)
		}
	}()
	return s, nil
}

func (s *session) close() {
	s.notices.Close()
	s.done.Wait()
	for _, closeFn := range s.closers {
		_ = closeFn()
	}
}

func validateClientConfig(cfg config.Config) error {
	u, err := url.Parse(cfg.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("EDEN_API_URL must be an absolute http(s) URL, got %q", cfg.APIURL)
	}
	if cfg.TelegramInitData == "" && cfg.DevTelegramID == "" {
		return errors.New("set EDEN_TELEGRAM_INIT_DATA or EDEN_DEV_TELEGRAM_ID to identify the purchaser")
	}
	return nil
}

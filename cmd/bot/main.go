package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/bot"
	"github.com/yourname/debtbook-bot/internal/config"
	"github.com/yourname/debtbook-bot/internal/db"
	"github.com/yourname/debtbook-bot/internal/observability"
	"github.com/yourname/debtbook-bot/internal/planner"
	"github.com/yourname/debtbook-bot/internal/repo"
	"github.com/yourname/debtbook-bot/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "debtbook-bot",
	Short:         "Telegram bot for tracking debts and repayment plans",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply migrations and start the bot",
	RunE:  runBot,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(runCmd, migrateCmd, planCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg := config.MustLoad()
	log := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	// Run migrations automatically on start
	if err := db.ApplyMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("bot init: %w", err)
	}
	botAPI.Debug = false

	store := repo.NewStore(pool)
	balances := balance.NewCalculator(store)
	plans := planner.New(balances)
	metrics := observability.NewMetrics()

	h := bot.NewHandler(botAPI, botAPI.Self.UserName, cfg, bot.Deps{
		Store:    store,
		Balances: balances,
		Debts:    service.NewDebts(store, balances, plans, nil),
		Payments: service.NewPayments(store, balances, nil),
		Invites:  service.NewInvites(store, cfg.InviteTTL(), nil),
		Metrics:  metrics,
		Log:      log,
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, cfg.MetricsAddr, log) })
	}

	g.Go(func() error {
		h.RunReminderWorker(gctx, cfg.RemindEvery.Duration)
		return nil
	})

	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := botAPI.GetUpdatesChan(u)
		defer botAPI.StopReceivingUpdates()

		log.Info("bot started", zap.String("username", botAPI.Self.UserName))
		for {
			select {
			case <-gctx.Done():
				log.Info("shutdown")
				return nil
			case upd, ok := <-updates:
				if !ok {
					return errors.New("updates channel closed")
				}
				h.HandleUpdate(gctx, upd)
			}
		}
	})

	return g.Wait()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log := observability.NewLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, 5*time.Minute)
	defer cancelTimeout()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		return err
	}
	log.Info("migrations up to date", zap.String("dir", cfg.MigrationsDir))
	return nil
}

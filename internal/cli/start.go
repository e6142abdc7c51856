package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"telequiz/internal/app"
	"telequiz/internal/catalog"
	"telequiz/internal/config"
	"telequiz/internal/infra/memory"
	pgledger "telequiz/internal/infra/postgres"
	redisinfra "telequiz/internal/infra/redis"
	"telequiz/internal/scheduler"
	"telequiz/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath)
		},
	}
}

func runBot(ctx context.Context, configPath string) error {
	log := slog.Default()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "questions", cat.Len())

	var ledger app.Ledger
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		ledger = pgledger.NewLedger(pool)
	} else {
		log.Warn("no postgres url configured, scores will not survive restarts")
		ledger = memory.NewLedger()
	}

	var leaderboard app.LeaderboardSource
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		ttl := config.TTLDuration(cfg.Redis.TTL, 30*time.Second)
		leaderboard = redisinfra.NewLeaderboardCache(redisClient, ledger, ttl)
	}

	bot, err := telegram.NewBot(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}
	service := app.NewQuizService(ledger, leaderboard, cat, bot, cfg.Catalog.QuizSize, log)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hour, minute, err := cfg.DailyQuizTime()
	if err != nil {
		return err
	}

	sched := scheduler.New(log)
	sched.Add(scheduler.Job{
		Name: "daily-quiz",
		Next: scheduler.DailyAt(hour, minute, loc),
		Run: func(ctx context.Context) error {
			_, _, err := service.DailyBroadcast(ctx)
			return err
		},
	})
	sched.Add(scheduler.Job{
		Name: "monthly-leaderboard",
		Next: scheduler.MonthlyAt(cfg.Schedule.LeaderboardDay, 0, 0, loc),
		Run:  service.MonthlyLeaderboard,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			log.Info("shutting down...")
			cancel()
		case <-runCtx.Done():
		}
	}()

	var health *http.Server
	if cfg.Server.Port != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
		health = &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}
		go func() {
			if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("health listener failed", "err", err)
			}
		}()
	}

	go sched.Run(runCtx)

	log.Info("bot is running", "quiz_size", cfg.Catalog.QuizSize, "daily_quiz", cfg.Schedule.DailyQuiz, "tz", cfg.Schedule.Timezone)
	bot.Run(runCtx, service)

	if health != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = health.Shutdown(shutdownCtx)
	}
	return nil
}

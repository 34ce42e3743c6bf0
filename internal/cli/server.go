package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/config"
	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/infra/memory"
	"deadline-quiz-service/internal/infra/postgres"
	redisstore "deadline-quiz-service/internal/infra/redis"
	"deadline-quiz-service/internal/log"
	"deadline-quiz-service/internal/metrics"
	transport "deadline-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores bundles the adapters selected by configuration.
type stores struct {
	questions app.QuestionStore
	author    app.QuestionAuthor
	responses app.ResponseStore
	sessions  app.SessionDirectory

	// invalidate drops any catalog cache after authoring.
	invalidate func(ctx context.Context)
	closers    []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	service := app.NewQuizService(st.questions, st.responses, st.sessions)
	handler := transport.NewHandler(service, transport.Options{
		DefaultDuration: cfg.Quiz.DefaultDuration,
		Author:          st.author,
		OnQuestionAdded: st.invalidate,
	})

	router := handler.Routes()
	router.Method(http.MethodGet, "/metrics", metrics.Handler(registry))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStores prefers Postgres for durable state, then Redis, then memory.
// Redis also caches the catalog when configured.
func buildStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{invalidate: func(context.Context) {}}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}
	retention := config.TTLDuration(cfg.Redis.TTL, 0)
	catalogTTL := config.TTLDuration(cfg.Quiz.CatalogTTL, time.Minute)

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		db := postgres.OpenBun(cfg.Postgres.URL)
		st.closers = append(st.closers, func() { _ = db.Close() })

		questions := postgres.NewQuestionStore(pool)
		st.author = questions
		st.questions = questions
		st.responses = postgres.NewResponseStore(db)
		st.sessions = postgres.NewSessionStore(pool)
	} else {
		questions := memory.NewQuestionStore(sampleQuestions()...)
		st.author = questions
		st.questions = questions
		st.responses = memory.NewResponseStore()
		st.sessions = memory.NewSessionStore()
	}

	if redisClient != nil {
		cache := redisstore.NewCatalogCache(redisClient, st.questions, catalogTTL)
		st.questions = cache
		st.invalidate = func(ctx context.Context) {
			if err := cache.Invalidate(ctx); err != nil {
				log.Warnf("invalidate catalog cache: %v", err)
			}
		}
		// responses reference quiz_sessions, so both stay in Postgres when it is configured
		if cfg.Postgres.URL == "" {
			st.sessions = redisstore.NewSessionStore(redisClient, retention)
			st.responses = redisstore.NewResponseStore(redisClient, retention)
		}
	} else if cfg.Postgres.URL != "" {
		cache := memory.NewCatalogCache(st.questions, catalogTTL)
		st.questions = cache
		st.invalidate = func(context.Context) { cache.Invalidate() }
	}
	return st, nil
}

// sampleQuestions provides a minimal catalog when no database is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "Capital of France?", CorrectAnswer: "Paris"},
		{ID: 2, Text: "What is 2 + 2?", CorrectAnswer: "4"},
	}
}

package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/infra/postgres"
	infraredis "deadline-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := postgres.OpenBun(pgURL)
	defer db.Close()
	if _, err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	questions := postgres.NewQuestionStore(pool)
	if _, err := questions.AddQuestion(ctx, "Capital of France?", "Paris"); err != nil {
		t.Fatalf("add question: %v", err)
	}
	responses := postgres.NewResponseStore(db)
	service := app.NewQuizService(questions, responses, postgres.NewSessionStore(pool))

	state, err := service.Start(ctx, 10)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	token := state.Session.Token

	// Doubled form submissions race on the same (session, question) row.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := service.Submit(ctx, token, map[int]string{1: fmt.Sprintf("answer-%d", i)}); err != nil {
				t.Errorf("submit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if _, err := service.Submit(ctx, token, map[int]string{1: " PARIS", 999: "x"}); err != nil {
		t.Fatalf("final submit: %v", err)
	}

	stored, err := responses.ListResponses(ctx, token)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(stored) != 1 || stored[0].SubmittedAnswer != " PARIS" || !stored[0].IsCorrect {
		t.Fatalf("expected one upserted correct response, got %+v", stored)
	}

	report, err := service.Score(ctx, token)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if report.TotalQuestions != 1 || report.AnsweredCount != 1 || report.CorrectCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := service.Score(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestRedisQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	defer client.Close()

	catalog := staticCatalog{{ID: 1, Text: "Capital of France?", CorrectAnswer: "Paris"}}
	service := app.NewQuizService(
		infraredis.NewCatalogCache(client, catalog, time.Minute),
		infraredis.NewResponseStore(client, time.Hour),
		infraredis.NewSessionStore(client, time.Hour),
	)

	state, err := service.Start(ctx, 5)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Submit(ctx, state.Session.Token, map[int]string{1: "Paris"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.Submit(ctx, state.Session.Token, map[int]string{1: "paris "}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	report, err := service.Score(ctx, state.Session.Token)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if report.AnsweredCount != 1 || report.CorrectCount != 1 || *report.Entries[0].SubmittedAnswer != "paris " {
		t.Fatalf("unexpected report %+v", report)
	}
}

type staticCatalog []domain.Question

func (c staticCatalog) ListQuestions(context.Context) ([]domain.Question, error) {
	return c, nil
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

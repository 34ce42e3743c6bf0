package cli

import (
	"context"
	"fmt"
	"os"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/config"
	"deadline-quiz-service/internal/infra/postgres"
	redisstore "deadline-quiz-service/internal/infra/redis"
	"deadline-quiz-service/internal/log"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Questions []struct {
		Text          string `yaml:"text"`
		CorrectAnswer string `yaml:"correctAnswer"`
	} `yaml:"questions"`
}

// NewSeedCmd loads questions from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add questions from a YAML file to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.Log.Level)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			questions := postgres.NewQuestionStore(pool)
			if err := seedQuestions(cmd.Context(), questions, file); err != nil {
				return err
			}
			return invalidateSharedCatalog(cmd.Context(), cfg, questions)
		},
	}
	cmd.Flags().StringVar(&file, "file", "config/questions.yaml", "YAML file with questions")
	return cmd
}

func seedQuestions(ctx context.Context, author app.QuestionAuthor, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for i, q := range seed.Questions {
		added, err := author.AddQuestion(ctx, q.Text, q.CorrectAnswer)
		if err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		log.Debugf("added question %d", added.ID)
	}
	log.Infof("seeded %d questions", len(seed.Questions))
	return nil
}

// invalidateSharedCatalog drops the Redis catalog so running servers pick up
// seeded questions on their next read.
func invalidateSharedCatalog(ctx context.Context, cfg config.Config, questions app.QuestionStore) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()
	if err := redisstore.NewCatalogCache(client, questions, 0).Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

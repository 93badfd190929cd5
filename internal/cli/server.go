package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qr-hunt-service/internal/app"
	"qr-hunt-service/internal/config"
	"qr-hunt-service/internal/domain"
	"qr-hunt-service/internal/infra/memory"
	pginfra "qr-hunt-service/internal/infra/postgres"
	redisinfra "qr-hunt-service/internal/infra/redis"
	"qr-hunt-service/internal/token"
	transport "qr-hunt-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the hunt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Game.Secret == "" {
		return fmt.Errorf("game secret not configured")
	}

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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var teams app.TeamRepository
	if redisClient != nil {
		teams = redisinfra.NewTeamStore(redisClient)
	} else {
		teams = memory.NewTeamStore()
	}

	var attempts app.AttemptLog = memory.NewAttemptLog()
	if pool != nil {
		attempts = pginfra.NewAttemptLog(pool)
	}

	if err := seedTeams(ctx, teams, cfg.Game.Teams); err != nil {
		return err
	}

	hub := transport.NewHub()
	codec := token.NewCodec(cfg.Game.Secret, config.TTLDuration(cfg.Game.TokenMaxAge, 0))
	service := app.NewGameService(app.Config{
		Teams:      teams,
		Questions:  questions,
		Attempts:   attempts,
		Broadcast:  hub,
		Codec:      codec,
		LevelCount: cfg.Game.LevelCount,
		Cooldown:   config.TTLDuration(cfg.Game.Cooldown, 30*time.Second),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service, hub).ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting hunt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func seedTeams(ctx context.Context, teams app.TeamRepository, roster []config.TeamSeed) error {
	for _, seed := range roster {
		err := teams.CreateTeam(ctx, domain.Team{
			ID:       seed.ID,
			Name:     seed.Name,
			Progress: 1,
		})
		if err != nil {
			return fmt.Errorf("seed team %s: %w", seed.ID, err)
		}
	}
	return nil
}

// sampleQuestions provides a minimal question set for running without
// Postgres; production deployments load questions from the database.
func sampleQuestions() map[int]domain.Question {
	questions := make(map[int]domain.Question, 10)
	for level := 1; level <= 10; level++ {
		questions[level] = domain.Question{
			Level:  level,
			Text:   fmt.Sprintf("Placeholder question for level %d", level),
			Answer: fmt.Sprintf("answer-%d", level),
		}
	}
	return questions
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-engine/config"
	"quiz-engine/internal/constants"
	"quiz-engine/internal/handlers"
	"quiz-engine/internal/middleware"
	"quiz-engine/internal/questionset"
	"quiz-engine/internal/repository"
	"quiz-engine/internal/rpc"
	"quiz-engine/internal/service"
	ws "quiz-engine/internal/websocket"
	"quiz-engine/pkg/cache"
	"quiz-engine/pkg/database"
	"quiz-engine/pkg/messaging"
	"quiz-engine/pkg/storage"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded")

	var pgClient *database.Client
	if cfg.DB.Enabled {
		client, err := database.NewPostgresClient(&cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		pgClient = client
		log.Println("Connected to PostgreSQL")
		defer pgClient.Close()

		initSchema(pgClient, "PostgreSQL")
	}

	resultsClient := openResultsDB(cfg, pgClient)
	if resultsClient != nil && resultsClient != pgClient {
		defer resultsClient.Close()
	}

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Failed to connect to Redis: %v", err)
		} else {
			redisClient = client
			log.Println("Connected to Redis")
			defer redisClient.Close()
		}
	}

	var rabbitClient *messaging.RabbitMQClient
	if cfg.RabbitMQ.Enabled {
		client, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("Warning: Failed to connect to RabbitMQ: %v", err)
		} else {
			rabbitClient = client
			log.Println("Connected to RabbitMQ")
			defer rabbitClient.Close()
		}
	}

	var s3Client *storage.S3Client
	if cfg.S3.Enabled {
		client, err := storage.NewS3Client(&cfg.S3)
		if err != nil {
			log.Printf("Warning: Failed to create S3 client: %v", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := client.EnsureBucket(ctx, cfg.S3.Bucket); err != nil {
				log.Printf("Warning: Failed to ensure S3 bucket: %v", err)
			}
			cancel()
			s3Client = client
			log.Println("Connected to S3")
		}
	}

	provider, err := buildProvider(cfg, pgClient, s3Client, redisClient)
	if err != nil {
		log.Fatalf("Failed to load question sets: %v", err)
	}

	var results service.ResultStore
	if resultsClient != nil {
		results = repository.NewResultRepository(resultsClient)
	}
	var publisher service.Publisher
	if rabbitClient != nil {
		publisher = rabbitClient
	}

	quizService := service.NewQuizService(provider, results, publisher)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(quizService)
	go hub.Run(hubCtx)
	log.Println("WebSocket hub started")

	go quizService.RunExpiry(hubCtx, cfg.Sessions.IdleTTL)
	log.Printf("Idle sessions expire after %v", cfg.Sessions.IdleTTL)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ready := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if pgClient != nil {
			if err := pgClient.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		if rabbitClient != nil && rabbitClient.IsClosed() {
			return errors.New("rabbitmq: connection closed")
		}
		return nil
	}

	router := handlers.NewRouter(
		handlers.NewQuizHandler(quizService),
		handlers.NewWebSocketHandler(hub, quizService, cfg.Server.CORSAllowedOrigins),
		cfg.Auth.JWTSecret,
		ready,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           middleware.CORS(cfg.Server.CORSAllowedOrigins)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(rpc.PlayerInterceptor(cfg.Auth.JWTSecret)))
	rpc.RegisterQuizEngineServer(grpcServer, rpc.NewQuizServer(quizService))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	go rpc.WatchReadiness(hubCtx, healthServer, ready, 10*time.Second)

	log.Printf("Quiz Engine gRPC server starting on port %s...", cfg.Server.GRPCPort)
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			log.Fatalf("Failed to listen on gRPC port: %v", err)
		}

		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	log.Printf("Quiz Engine HTTP server starting on port %s...", cfg.Server.HTTPPort)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down quiz engine...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Failed to shut down HTTP server: %v", err)
	}
	grpcServer.GracefulStop()
	stopHub()

	log.Println("Quiz engine stopped")
}

func initSchema(client *database.Client, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx); err != nil {
		log.Printf("Warning: Failed to initialize %s schema: %v", name, err)
	} else {
		log.Printf("%s schema initialized", name)
	}
}

// openResultsDB returns nil when result history is disabled or unavailable.
func openResultsDB(cfg *config.Config, pgClient *database.Client) *database.Client {
	switch cfg.Results.Driver {
	case constants.DriverPostgres:
		if pgClient == nil {
			log.Println("Warning: RESULTS_DRIVER=postgres but DB_ENABLED is false, result history disabled")
		}
		return pgClient

	case constants.DriverSQLite:
		client, err := database.NewSQLiteClient(cfg.Results.SQLitePath)
		if err != nil {
			log.Printf("Warning: Failed to open SQLite results database: %v", err)
			return nil
		}
		log.Printf("Opened SQLite results database at %s", cfg.Results.SQLitePath)
		initSchema(client, "SQLite")
		return client

	default:
		log.Println("Result history disabled")
		return nil
	}
}

// buildProvider chains every configured source in front of the builtin sets
// and puts the Redis cache in front of the chain.
func buildProvider(
	cfg *config.Config,
	pgClient *database.Client,
	s3Client *storage.S3Client,
	redisClient *cache.RedisClient,
) (questionset.Provider, error) {
	builtin, err := questionset.NewBuiltinProvider()
	if err != nil {
		return nil, err
	}

	var providers []questionset.Provider
	if cfg.QuizSets.Dir != "" {
		providers = append(providers, questionset.NewFileProvider(cfg.QuizSets.Dir))
		log.Printf("Loading question sets from %s", cfg.QuizSets.Dir)
	}
	if pgClient != nil {
		sqlProvider := questionset.NewSQLProvider(pgClient)
		seedBuiltinSets(sqlProvider, builtin)
		providers = append(providers, sqlProvider)
	}
	if s3Client != nil {
		providers = append(providers, questionset.NewObjectProvider(s3Client, cfg.S3.Bucket, cfg.S3.Prefix, storage.IsNotFound))
	}
	providers = append(providers, builtin)

	var provider questionset.Provider = questionset.NewChainProvider(providers...)
	if redisClient != nil {
		provider = questionset.NewCachedProvider(provider, redisClient, cfg.QuizSets.CacheTTL)
	}
	return provider, nil
}

// seedBuiltinSets stores builtin sets the database does not have yet.
func seedBuiltinSets(sqlProvider *questionset.SQLProvider, builtin *questionset.StaticProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infos, err := builtin.ListSets(ctx)
	if err != nil {
		return
	}
	for _, info := range infos {
		if _, err := sqlProvider.GetSet(ctx, info.ID); !errors.Is(err, questionset.ErrSetNotFound) {
			continue
		}
		set, err := builtin.GetSet(ctx, info.ID)
		if err != nil {
			continue
		}
		if err := sqlProvider.SaveSet(ctx, set); err != nil {
			log.Printf("Failed to seed question set %s: %v", info.ID, err)
			continue
		}
		log.Printf("Seeded question set %s", info.ID)
	}
}

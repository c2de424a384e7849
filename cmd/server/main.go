package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/clipposter/configs"
	"github.com/maheshrc27/clipposter/internal/api/handlers"
	"github.com/maheshrc27/clipposter/internal/api/middleware"
	job "github.com/maheshrc27/clipposter/internal/jobs"
	"github.com/maheshrc27/clipposter/internal/queue"
	"github.com/maheshrc27/clipposter/internal/repository"
	"github.com/maheshrc27/clipposter/internal/rowstore"
	"github.com/maheshrc27/clipposter/internal/service"
	"github.com/maheshrc27/clipposter/internal/xapi"
	"github.com/robfig/cron"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	var googleOpts []option.ClientOption
	if cfg.StoreBackend == "sheets" || cfg.MediaHost == "drive" {
		opts, err := service.GoogleClientOptions(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			log.Fatalf("Failed to load google credentials: %v", err)
		}
		googleOpts = opts
	}

	store, db := openStore(ctx, cfg, googleOpts)
	if db != nil {
		defer closeDB(db)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	dispatcher := queue.NewDispatcher(client, cfg.ScheduleInterval)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    512 * 1024 * 1024, // 512 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	recordRepo := repository.NewRecordRepository(store, cfg.Sheets.VideoSheetName)
	accountRepo := repository.NewAccountRepository(store, cfg.Sheets.ProfilesSheetName, []byte(cfg.SecretKey))

	x := xapi.NewClient(cfg.X.UploadURL, cfg.X.APIURL, cfg.HTTPCallTimeout, nil)
	uploadService := service.NewUploadService(x, cfg.SegmentSize, cfg.MediaCategory, cfg.UploadTimeout)
	postService := service.NewPostService(x)
	schedulerService := service.NewSchedulerService(recordRepo, accountRepo, uploadService, postService, cfg.ClaimLease)
	recordService := service.NewRecordService(rowstore.NewCache(store), cfg.Sheets.VideoSheetName, cfg.MediaDir)
	rehostService := service.NewRehostService(recordRepo, openMediaHost(ctx, cfg, googleOpts), cfg.MediaDir, cfg.UploadTimeout)
	tokenService := service.NewTokenService(&oauth2.Config{
		ClientID:     cfg.X.ClientID,
		ClientSecret: cfg.X.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.X.AuthURL,
			TokenURL: cfg.X.TokenURL,
		},
	}, accountRepo, cfg.TokenRefreshWindow)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	records := handlers.NewRecordHandler(recordService, schedulerService, dispatcher)
	api.Get("/records", records.ListRecords)
	api.Post("/records", records.CreateRecord)
	api.Post("/records/refresh", records.RefreshRecords)
	api.Post("/records/:id/schedule", records.ScheduleRecord)
	api.Post("/records/:id/caption", records.UpdateCaption)
	api.Post("/records/:id/repost", records.Repost)
	api.Post("/schedule/run", records.RunSchedule)
	api.Post("/media/rehost", records.RehostMedia)

	accounts := handlers.NewAccountHandler(accountRepo)
	api.Get("/accounts", accounts.ListAccounts)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(tokenService, cfg.HTTPCallTimeout)
	scheduleTickJob := job.NewScheduleTickJob(dispatcher)
	rehostTickJob := job.NewRehostTickJob(dispatcher)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every "+cfg.ScheduleInterval.String(), scheduleTickJob.Tick)
	c.AddFunc("@every 00h15m00s", rehostTickJob.Tick)
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(schedulerService, rehostService)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			queue.QueueScheduler: 2,
			queue.QueueMedia:     1,
		},
		ShutdownTimeout: cfg.UploadTimeout,
	})

	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeScheduleRun, queueW.HandleScheduleRunTask)
		mux.HandleFunc(queue.TaskTypeMediaRehost, queueW.HandleMediaRehostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, server)
}

func openStore(ctx context.Context, cfg *config.Config, googleOpts []option.ClientOption) (rowstore.Store, *sql.DB) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("Database is unreachable: %v", err)
		}
		pg := rowstore.NewPostgresStore(db)
		if err := pg.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		return pg, db
	case "memory":
		return rowstore.NewMemoryStore(), nil
	default:
		svc, err := rowstore.NewSheetsService(ctx, googleOpts...)
		if err != nil {
			log.Fatalf("Failed to create sheets client: %v", err)
		}
		return rowstore.NewSheetsStore(svc, cfg.Sheets.SpreadsheetID), nil
	}
}

func openMediaHost(ctx context.Context, cfg *config.Config, googleOpts []option.ClientOption) service.MediaHost {
	if cfg.MediaHost == "drive" {
		d, err := service.NewDriveService(ctx, cfg.Sheets.DriveFolderID, googleOpts...)
		if err != nil {
			log.Fatalf("Failed to create drive client: %v", err)
		}
		return d
	}

	r2, err := service.NewR2Service(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to create r2 client: %v", err)
	}
	return r2
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}

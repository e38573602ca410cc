package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tree-mapping-system/handlers"
	"tree-mapping-system/middleware"
	"tree-mapping-system/services"
	"tree-mapping-system/store"
	"tree-mapping-system/utils"
	"tree-mapping-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // photos go straight to S3; bodies stay small
	})

	// 🔐 GLOBAL: only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Internal-Api-Key",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitS3(); err != nil {
		log.Fatal("failed to initialize S3 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	pgStore := store.NewPostgresStore(db)
	if err := pgStore.Migrate(); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	redisClient, err := workers.NewRedisClient()
	if err != nil {
		log.Fatal("failed to configure Redis:", err)
	}
	analysisQueue := workers.NewRedisAnalysisQueue(redisClient)

	dedupService := services.NewDedupService(pgStore)
	cooldownService := services.NewCooldownService(pgStore)
	zoneService := services.NewZoneService(pgStore, redisClient)
	bountyService := services.NewBountyService(pgStore)
	treeService := services.NewTreeService(pgStore)
	observationService := services.NewObservationService(
		pgStore, dedupService, cooldownService, zoneService, bountyService, analysisQueue,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	requeueWorker := workers.NewRequeueWorker(pgStore, analysisQueue)
	go requeueWorker.Poll(ctx, 5*time.Minute)

	bountyService.StartBountySweeper()

	handlers.SetupHealthRoutes(app, pgStore)
	handlers.SetupObservationRoutes(app, observationService, treeService)
	handlers.SetupTreeRoutes(app, treeService)
	handlers.SetupZoneRoutes(app, zoneService)
	handlers.SetupBountyRoutes(app, bountyService)
	handlers.SetupUploadRoutes(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Observation requeue worker running (every 5m)")
	log.Println("✅ Bounty sweeper running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sublet-market/pkg/cache"
	"sublet-market/pkg/config"
	"sublet-market/pkg/convert"
	"sublet-market/pkg/database"
	"sublet-market/pkg/jwt"
	"sublet-market/pkg/logger"
	"sublet-market/pkg/metrics"
	"sublet-market/pkg/middleware"
	"sublet-market/pkg/queue"
	"sublet-market/pkg/s3"
	"sublet-market/services/listing/internal/draft"
	listingHTTP "sublet-market/services/listing/internal/controller/http"
	"sublet-market/services/listing/internal/repo/persistent"
	"sublet-market/services/listing/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const (
	previewsPath = "/previews"
	swaggerSpec  = "/swagger-spec/doc.json"
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	// Drafts live in redis, so unlike other caches it is required here.
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		return nil, err
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without moderation queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	// Initialize repositories
	listingRepo := persistent.NewListingRepository(a.db)
	draftStore := persistent.NewRedisDraftStore(a.redisClient, a.cfg.DraftTTL)
	objectStore := persistent.NewS3ObjectStore(a.s3Client)

	previews, err := draft.NewMemoryPreviews(previewsPath, previewCapacity(a.cfg))
	if err != nil {
		return err
	}

	sessions, err := usecase.NewSessions(usecase.SessionDeps{
		Store:     draftStore,
		Objects:   objectStore,
		Converter: convert.NewHEICConverter(a.cfg.ConverterBinary),
		Previews:  previews,
		Listings:  listingRepo,
		Limits: draft.Limits{
			MaxPhotos:   a.cfg.DraftMaxPhotos,
			MaxBytes:    a.cfg.DraftMaxPhotoBytes,
			Parallelism: a.cfg.DraftUploadParallelism,
		},
		Logger: a.log,
	}, a.cfg.DraftSessionCacheSize)
	if err != nil {
		return err
	}

	var publisher usecase.ModerationPublisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	// Initialize use cases
	draftUseCase := usecase.NewDraftUseCase(sessions, previews, a.log)
	submissionUseCase := usecase.NewSubmissionUseCase(sessions, listingRepo, publisher, a.cfg.ListingMinPhotos, a.log)

	// Initialize HTTP handlers
	draftHandler := listingHTTP.NewDraftHandler(draftUseCase, submissionUseCase, a.jwtService, a.log)

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: NewRouter(draftHandler, a.jwtService, a.redisClient, a.cfg.SwaggerSpecPath),
	}

	go func() {
		a.log.Info("Listing service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

// previewCapacity holds a thumbnail for every photo of every live session.
func previewCapacity(cfg *config.Config) int {
	return max(cfg.DraftPreviewCacheSize, cfg.DraftSessionCacheSize*cfg.DraftMaxPhotos)
}

func NewRouter(draftHandler *listingHTTP.DraftHandler, jwtService *jwt.Service, redisClient *redis.Client, swaggerSpecPath string) *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = 64 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The UI loads the spec generated by swag init from disk.
	r.GET(swaggerSpec, func(c *gin.Context) {
		if _, err := os.Stat(swaggerSpecPath); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "API spec not generated"})
			return
		}
		c.File(swaggerSpecPath)
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(swaggerSpec)))

	// Preview ids are random and only live in this process.
	r.GET(previewsPath+"/:id", draftHandler.GetPreview)

	api := r.Group("/api/v1")

	// Websocket clients authenticate with ?token=.
	api.GET("/drafts/:key/ws", draftHandler.StreamDraft)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisClient, 120, time.Minute))
	{
		protected.GET("/drafts/:key", draftHandler.GetDraft)
		protected.DELETE("/drafts/:key", draftHandler.ResetDraft)
		protected.POST("/drafts/:key/photos", draftHandler.AddPhotos)
		protected.POST("/drafts/:key/photos/reorder", draftHandler.Reorder)
		protected.DELETE("/drafts/:key/photos/:index", draftHandler.RemovePhoto)
		protected.POST("/drafts/:key/photos/:index/cover", draftHandler.SetCover)
		protected.PUT("/drafts/:key/photos/:index/note", draftHandler.SetNote)
		protected.POST("/drafts/:key/submit", draftHandler.Submit)
	}

	return r
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down listing service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop accepting requests before closing the stores they use.
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	a.log.Info("Listing service exited")
	return nil
}
